package backend

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteBuildFile emits plan's statements as a ninja-like line-oriented
// build file: one "build <outputs>: <rule> <inputs>" header per statement,
// followed by its command and (if present) depfile, in the statements'
// declaration order — the downstream executor that actually invokes these
// commands is external to mbs (§1); this is only the emitted description of
// one.
func WriteBuildFile(w io.Writer, plan *Plan) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# generated by mbs for project %s %s\n\n", plan.ProjectName, plan.ProjectVersion)
	for _, st := range plan.Statements {
		fmt.Fprintf(bw, "build %s: %s %s", strings.Join(st.Outputs, " "), st.Rule, strings.Join(st.Inputs, " "))
		if len(st.ImplicitDeps) > 0 {
			fmt.Fprintf(bw, " | %s", strings.Join(st.ImplicitDeps, " "))
		}
		if len(st.OrderOnlyDeps) > 0 {
			fmt.Fprintf(bw, " || %s", strings.Join(st.OrderOnlyDeps, " "))
		}
		fmt.Fprintln(bw)
		if st.Description != "" {
			fmt.Fprintf(bw, "  description = %s\n", st.Description)
		}
		fmt.Fprintf(bw, "  command = %s\n", strings.Join(st.Command, " "))
		if st.Depfile != "" {
			fmt.Fprintf(bw, "  depfile = %s\n", st.Depfile)
		}
		if st.RspFile != "" {
			fmt.Fprintf(bw, "  rspfile = %s\n", st.RspFile)
			fmt.Fprintf(bw, "  rspfile_content = %s\n", strings.Join(st.RspFileContent, " "))
		}
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

// WriteInstallManifest emits plan's install manifest, one line per entry, in
// declaration order (§4.7 "Emit an install manifest").
func WriteInstallManifest(w io.Writer, plan *Plan) error {
	bw := bufio.NewWriter(w)
	for _, ie := range plan.Installs {
		flags := ""
		if ie.Strip {
			flags += "s"
		}
		if ie.FollowSymlinks {
			flags += "L"
		}
		if flags == "" {
			flags = "-"
		}
		fmt.Fprintf(bw, "%s\t%s\t%04o\t%s\n", ie.Source, ie.Destination, ie.Mode, flags)
	}
	return bw.Flush()
}
