// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"sigs.k8s.io/yaml"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/tigera/policyq/pkg/rbac"
	"github.com/tigera/policyq/pkg/trace"
)

const (
	outputText  = "text"
	outputTable = "table"
	outputYAML  = "yaml"
	outputJSON  = "json"
)

func validOutput(o string) bool {
	switch o {
	case outputText, outputTable, outputYAML, outputJSON:
		return true
	}
	return false
}

type decisionPrint struct {
	Allowed bool        `json:"allowed"`
	Trace   trace.Trace `json:"trace"`
}

type podPrint struct {
	Namespace string            `json:"namespace"`
	Name      string            `json:"name"`
	IPs       []string          `json:"ips,omitempty"`
	Labels    map[string]string `json:"labels,omitempty"`
}

func printYAML(out io.Writer, v interface{}) error {
	output, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s", output)
	return err
}

func printJSON(out io.Writer, v interface{}) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", output)
	return err
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	return table
}

// printDecision prints yes or no followed by the explanation, in the style of kubectl auth can-i.
func printDecision(out io.Writer, format string, allowed bool, t trace.Trace) error {
	switch format {
	case outputYAML:
		return printYAML(out, decisionPrint{Allowed: allowed, Trace: t})
	case outputJSON:
		return printJSON(out, decisionPrint{Allowed: allowed, Trace: t})
	}

	answer := "no"
	if allowed {
		answer = "yes"
	}
	fmt.Fprintln(out, answer)

	if format == outputTable {
		table := newTable(out, "Subsystem", "Kind", "Name", "Match", "Reason")
		for _, e := range t.Entries {
			table.Append([]string{string(e.Subsystem), e.ObjectKind, e.ObjectName, strconv.FormatBool(e.Matched), e.Reason})
		}
		table.Render()
		return nil
	}
	for _, e := range t.Entries {
		fmt.Fprintf(out, "  %s\n", e)
	}
	return nil
}

func printGrants(out io.Writer, format string, grants []rbac.Grant) error {
	if grants == nil {
		grants = []rbac.Grant{}
	}
	switch format {
	case outputYAML:
		return printYAML(out, grants)
	case outputJSON:
		return printJSON(out, grants)
	case outputTable:
		table := newTable(out, "Binding", "Subject", "Role", "Rule", "Scope")
		for _, g := range grants {
			table.Append([]string{bindingString(g), g.SubjectString(), g.RoleKind + " " + g.RoleName, strconv.Itoa(g.RuleIndex), string(g.Scope)})
		}
		table.Render()
		return nil
	}

	if len(grants) == 0 {
		fmt.Fprintln(out, "No grants found")
		return nil
	}
	for _, g := range grants {
		fmt.Fprintf(out, "%s: %s via %s %s rule %d (%s)\n",
			bindingString(g), g.SubjectString(), g.RoleKind, g.RoleName, g.RuleIndex, g.Scope)
		if len(g.ServiceAccounts) > 0 {
			fmt.Fprintf(out, "  service accounts: %s\n", strings.Join(g.ServiceAccounts, ", "))
		}
	}
	return nil
}

func bindingString(g rbac.Grant) string {
	if g.BindingNamespace == "" {
		return g.BindingKind + " " + g.BindingName
	}
	return g.BindingKind + " " + g.BindingNamespace + "/" + g.BindingName
}

func printPods(out io.Writer, format string, pods []*corev1.Pod) error {
	printed := make([]podPrint, 0, len(pods))
	for _, p := range pods {
		pp := podPrint{Namespace: p.Namespace, Name: p.Name, Labels: p.Labels}
		for _, ip := range p.Status.PodIPs {
			pp.IPs = append(pp.IPs, ip.IP)
		}
		if len(pp.IPs) == 0 && p.Status.PodIP != "" {
			pp.IPs = []string{p.Status.PodIP}
		}
		printed = append(printed, pp)
	}

	switch format {
	case outputYAML:
		return printYAML(out, printed)
	case outputJSON:
		return printJSON(out, printed)
	case outputTable:
		table := newTable(out, "Namespace", "Name", "Labels")
		for _, p := range printed {
			table.Append([]string{p.Namespace, p.Name, labels.Set(p.Labels).String()})
		}
		table.Render()
		return nil
	}

	if len(printed) == 0 {
		fmt.Fprintln(out, "No pods selected")
		return nil
	}
	for _, p := range printed {
		fmt.Fprintf(out, "%s/%s\n", p.Namespace, p.Name)
	}
	return nil
}
