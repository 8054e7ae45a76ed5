// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"
	"github.com/nats-io/nats.go"
)

// Publisher is the subset of a NATS connection used to publish events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSRecorder publishes events as JSON to "<subject>.<action>".
type NATSRecorder struct {
	pub     Publisher
	subject string
}

// NewNATSRecorder returns a Recorder that publishes with pub.
func NewNATSRecorder(pub Publisher, subject string) *NATSRecorder {
	return &NATSRecorder{pub: pub, subject: subject}
}

// Record publishes the event. Failures are logged and otherwise ignored.
func (r *NATSRecorder) Record(ctx context.Context, event Event) {
	logger := logr.FromContextOrDiscard(ctx)

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error(err, "Failed to marshal transition event", "vm", event.VM)
		return
	}
	subject := r.subject + "." + event.Action
	if err := r.pub.Publish(subject, data); err != nil {
		logger.Error(err, "Failed to publish transition event",
			"vm", event.VM, "subject", subject)
	}
}

// ConnectNATS dials url and returns the connection. Reconnects are retried
// forever and reported through logger.
func ConnectNATS(url string, logger logr.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("wrapanapi"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, "NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	return nats.Connect(url, opts...)
}
