// Copyright (c) 2026 Tigera, Inc. All rights reserved.

// Package commands implements the policyq command line.
package commands

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tigera/policyq/internal/pkg/bootstrap"
	"github.com/tigera/policyq/pkg/config"
	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/loader"
)

// ExitError carries a non-zero exit code without an error message, for a query that was answered with a denial.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var errDenied = &ExitError{Code: 1}

// options holds the global flags, overlaid on the environment configuration.
type options struct {
	cfg    *config.Config
	output string

	manifests  []string
	kubeconfig string
	fullTrace  bool
	logLevel   string
}

// NewRootCommand returns the policyq command with all of its subcommands.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "policyq",
		Short: "Answer RBAC and NetworkPolicy questions about a cluster snapshot",
		Long: `policyq loads Kubernetes RBAC and NetworkPolicy objects from manifests or a live cluster and
answers "can this principal do this?" and "can this pod connect to that pod?" with an
explanation of the objects responsible for the decision.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.complete(cmd.Flags())
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&o.manifests, "manifests", "f", nil, "Manifest files or directories to load, - for stdin")
	flags.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to a kubeconfig to load the snapshot from a cluster")
	flags.StringVarP(&o.output, "output", "o", outputText, "Output format: text, table, yaml or json")
	flags.BoolVar(&o.fullTrace, "full-trace", false, "Include the objects considered but not matched in the explanation")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level, overrides POLICYQ_LOG_LEVEL")

	root.AddCommand(
		newCanICommand(o),
		newCanConnectCommand(o),
		newWhoCanCommand(o),
		newSelectCommand(o),
		newServeCommand(o),
		newVersionCommand(o),
	)
	return root
}

// complete loads the environment configuration and applies the flags that were set on top of it.
func (o *options) complete(flags *pflag.FlagSet) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if flags.Changed("manifests") {
		cfg.Manifests = o.manifests
	}
	if flags.Changed("kubeconfig") {
		cfg.Kubeconfig = o.kubeconfig
	}
	if flags.Changed("full-trace") {
		cfg.FullTrace = o.fullTrace
	}
	if flags.Changed("log-level") {
		if err := cfg.SetLogLevel(o.logLevel); err != nil {
			return err
		}
	}
	if !validOutput(o.output) {
		return errors.Errorf("unsupported output format %q", o.output)
	}

	bootstrap.ConfigureLogging(cfg.ParsedLogLevel)
	o.cfg = cfg
	return nil
}

func (o *options) engineOptions() []engine.Option {
	if o.cfg.FullTrace {
		return []engine.Option{engine.WithFullTrace()}
	}
	return nil
}

// source returns the configured snapshot source. Manifests take precedence over a cluster.
func (o *options) source() (loader.Source, error) {
	if !o.cfg.HasSource() {
		return nil, errors.New("no snapshot source: specify --manifests or --kubeconfig")
	}
	if len(o.cfg.Manifests) > 0 {
		return loader.ManifestSource(o.cfg.Manifests...), nil
	}
	client, _, err := bootstrap.ConfigureK8sClient(o.cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}
	return loader.ClusterSource(client), nil
}

// loadStore loads a single snapshot from the configured source.
func (o *options) loadStore(ctx context.Context) (*engine.Store, error) {
	source, err := o.source()
	if err != nil {
		return nil, err
	}
	objs, err := source(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "loading snapshot")
	}
	log.WithField("objects", objs.Len()).Debug("Loaded objects")
	return engine.LoadSnapshot(objs, o.engineOptions()...)
}
