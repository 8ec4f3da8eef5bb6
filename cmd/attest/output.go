package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/poiesic/attest"
)

func printResponse(w io.Writer, resp *attest.Response, trajectory bool) {
	fmt.Fprintln(w, resp.AnnotatedAnswer)
	fmt.Fprintln(w)

	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "Sources:")
		for _, s := range resp.Sources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}

	fmt.Fprintf(w, "Route: %s\n", resp.Route)
	if total := resp.Summary.Total(); total > 0 {
		fmt.Fprintf(w, "Verification: %s (%d claim(s))\n", resp.Summary.String(), total)
	}
	if resp.Degraded() {
		fmt.Fprintf(w, "Status: %s (%s)\n", resp.Status, strings.Join(resp.Degradations, ", "))
	}

	if !trajectory {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trajectory:")
	for i, step := range resp.Trajectory {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, step.Kind, step.Title)
		if step.Content != "" {
			fmt.Fprintf(w, "    %s\n", indent(step.Content))
		}
		if step.Detail != "" {
			fmt.Fprintf(w, "    %s\n", indent(step.Detail))
		}
	}
}

func indent(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", "\n    ")
}
