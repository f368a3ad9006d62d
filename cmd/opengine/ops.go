package main

import (
	"fmt"

	"github.com/born-ml/opengine/internal/ops"
	"github.com/spf13/cobra"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List registered operators by device and element type",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, key := range ops.NewBuiltinRegistry().Keys() {
				if _, err := fmt.Fprintf(w, "%-12s %-5s %s\n", key.Name, key.Device, key.DType); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
