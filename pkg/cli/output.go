// © Broadcom. All Rights Reserved.
// The term “Broadcom” refers to Broadcom Inc. and/or its subsidiaries.
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	pkgerr "github.com/manageiq/wrapanapi/pkg/errors"
)

const (
	outputText = "text"
	outputYAML = "yaml"
)

func addOutputFlag(cmd *cobra.Command, p *string) {
	cmd.Flags().StringVarP(p, "output", "o", outputText, "Output format, text or yaml.")
}

func validateOutput(format string) error {
	switch format {
	case outputText, outputYAML:
		return nil
	default:
		return pkgerr.InvalidArgumentError{
			Argument: "output",
			Message:  fmt.Sprintf("%q is not text or yaml", format),
		}
	}
}

func writeYAML(w io.Writer, obj any) error {
	data, err := yaml.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
