package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/Togather-Foundation/ewm/internal/api"
	"github.com/spf13/cobra"
)

// Stamped at build time with -ldflags "-X .../cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func buildInfo() api.BuildInfo {
	return api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate}
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := buildInfo().Report()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Fprintln(out, "Explore With Me")
			tw := tabwriter.NewWriter(out, 0, 0, 1, ' ', 0)
			fmt.Fprintf(tw, "Version:\t%s\n", report.Version)
			fmt.Fprintf(tw, "Git commit:\t%s\n", report.GitCommit)
			fmt.Fprintf(tw, "Build date:\t%s\n", report.BuildDate)
			fmt.Fprintf(tw, "Go version:\t%s\n", report.GoVersion)
			fmt.Fprintf(tw, "Platform:\t%s\n", report.Platform)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
