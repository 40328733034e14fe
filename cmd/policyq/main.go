// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/tigera/policyq/cmd/policyq/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		var exit *commands.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
