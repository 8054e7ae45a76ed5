// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package simulated

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

const (
	vmKeyPrefix       = "vm:"
	templateKeyPrefix = "template:"
)

// Machine is the persisted record of a simulated VM.
type Machine struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Template  string    `json:"template,omitempty"`
	Flavor    string    `json:"flavor,omitempty"`
	Network   string    `json:"network,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Image is the persisted record of a simulated template.
type Image struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	SourceVM  string    `json:"sourceVM,omitempty"`
	Flavor    string    `json:"flavor,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// store persists records as JSON in badger.
type store struct {
	db *badger.DB
}

// openStore opens the database at path, or an in-memory database if path is
// empty.
func openStore(path string) (*store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Clean(path))
		opts = opts.WithValueLogFileSize(1 << 20)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &store{db: db}, nil
}

func (s *store) close() error {
	return s.db.Close()
}

func (s *store) put(key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *store) get(key, kind string, out any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return pkgerr.NotFoundError{Kind: kind, Name: key}
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, out)
		})
	})
}

func (s *store) delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// list calls fn with the value of every key under prefix.
func (s *store) list(prefix string, fn func(data []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) getMachine(id string) (Machine, error) {
	var m Machine
	err := s.get(vmKeyPrefix+id, "vm", &m)
	return m, err
}

func (s *store) putMachine(m Machine) error {
	return s.put(vmKeyPrefix+m.ID, m)
}

func (s *store) listMachines() ([]Machine, error) {
	var out []Machine
	err := s.list(vmKeyPrefix, func(data []byte) error {
		var m Machine
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

func (s *store) getImage(id string) (Image, error) {
	var i Image
	err := s.get(templateKeyPrefix+id, "template", &i)
	return i, err
}

func (s *store) putImage(i Image) error {
	return s.put(templateKeyPrefix+i.ID, i)
}

func (s *store) listImages() ([]Image, error) {
	var out []Image
	err := s.list(templateKeyPrefix, func(data []byte) error {
		var i Image
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		out = append(out, i)
		return nil
	})
	return out, err
}
