// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigera/policyq/pkg/version"
)

func newVersionCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Aliases: []string{"ver"},
		Short:   "Print the policyq version",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := version.Get()
			switch o.output {
			case outputYAML:
				return printYAML(cmd.OutOrStdout(), v)
			case outputJSON:
				return printJSON(cmd.OutOrStdout(), v)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Build Version:    ", v.Version)
			fmt.Fprintln(out, "Build date:       ", v.BuildDate)
			fmt.Fprintln(out, "Git tag ref:      ", v.GitTagRef)
			fmt.Fprintln(out, "Git commit:       ", v.GitCommit)
			return nil
		},
	}
}
