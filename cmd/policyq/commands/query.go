// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package commands

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/tigera/policyq/pkg/engine"
	"github.com/tigera/policyq/pkg/rbac"
)

// splitResource splits a kubectl style "resource.group" argument.
func splitResource(arg string) (resource, group string) {
	if i := strings.Index(arg, "."); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// parsePodRef parses a "namespace/name" argument.
func parsePodRef(arg string) (engine.PodRef, error) {
	parts := strings.Split(arg, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return engine.PodRef{}, errors.Errorf("pod %q must be specified as namespace/name", arg)
	}
	return engine.PodRef{Namespace: parts[0], Name: parts[1]}, nil
}

func newCanICommand(o *options) *cobra.Command {
	var (
		user, namespace string
		groups          []string
	)
	cmd := &cobra.Command{
		Use:   "can-i VERB RESOURCE[.GROUP] [NAME]",
		Short: "Check whether a principal may perform an action",
		Long: `Check whether a user or service account may perform the verb on the resource. Without a namespace
the check asks for a cluster-wide grant. Exits with status 1 when the action is denied.`,
		Example: `  policyq can-i get pods -n staging --as bob --as-group interns -f manifests/
  policyq can-i create deployments.apps --as system:serviceaccount:ci:deployer -f cluster.yaml`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			resource, group := splitResource(args[1])
			var name string
			if len(args) == 3 {
				name = args[2]
			}

			d, t, err := st.CanI(rbac.NewPrincipal(user, groups), args[0], group, resource, name, namespace)
			if err != nil {
				return err
			}
			if err := printDecision(cmd.OutOrStdout(), o.output, d.Allowed, t); err != nil {
				return err
			}
			if !d.Allowed {
				return errDenied
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "as", "", "Username to check, e.g. bob or system:serviceaccount:ns:name")
	cmd.Flags().StringSliceVar(&groups, "as-group", nil, "Group of the user, can be repeated")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the action, empty for cluster-wide")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func newCanConnectCommand(o *options) *cobra.Command {
	var (
		port     int
		protocol string
	)
	cmd := &cobra.Command{
		Use:   "can-connect SOURCE DESTINATION",
		Short: "Check whether a pod may connect to another pod",
		Long: `Check whether the source pod may open a connection to the destination pod on the port. Pods are
given as namespace/name. Exits with status 1 when the connection is denied.`,
		Example: `  policyq can-connect staging/web staging/db --port 5432 -f manifests/`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := parsePodRef(args[0])
			if err != nil {
				return err
			}
			dst, err := parsePodRef(args[1])
			if err != nil {
				return err
			}
			st, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			d, t, err := st.CanConnect(src, dst, port, protocol)
			if err != nil {
				return err
			}
			if err := printDecision(cmd.OutOrStdout(), o.output, d.Allowed, t); err != nil {
				return err
			}
			if !d.Allowed {
				return errDenied
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Destination port")
	cmd.Flags().StringVar(&protocol, "protocol", "TCP", "Protocol, TCP or UDP")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

func newWhoCanCommand(o *options) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "who-can VERB RESOURCE[.GROUP] [NAME]",
		Short: "List the bindings that grant an action",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}
			resource, group := splitResource(args[1])
			var name string
			if len(args) == 3 {
				name = args[2]
			}

			grants, err := st.WhoCan(args[0], group, resource, name, namespace)
			if err != nil {
				return err
			}
			return printGrants(cmd.OutOrStdout(), o.output, grants)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the action, empty for cluster-wide grants only")
	return cmd
}

func newSelectCommand(o *options) *cobra.Command {
	var namespace string
	cmd := &cobra.Command{
		Use:   "select SELECTOR",
		Short: "List the pods a label selector selects",
		Long: `List the pods a label selector selects, e.g. "app=web,tier in (frontend,backend)". An empty
selector selects every pod.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ls, err := metav1.ParseToLabelSelector(args[0])
			if err != nil {
				return errors.Wrap(err, "parsing selector")
			}
			st, err := o.loadStore(cmd.Context())
			if err != nil {
				return err
			}

			pods, err := st.SelectPods(namespace, ls)
			if err != nil {
				return err
			}
			return printPods(cmd.OutOrStdout(), o.output, pods)
		},
	}
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Namespace of the pods, empty for all namespaces")
	return cmd
}
