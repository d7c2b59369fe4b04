package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailblocks/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for mailblocks including the version, git
commit, build time, Go version and target platform.

Examples:
  mailblocks version              # Show version
  mailblocks version --detailed   # Show every build detail
  mailblocks version --format json`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", formatText, "Output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
	AddFlagValidation(versionCmd.Flags(), "format", ValidateChoice(formatText, formatJSON, formatYAML))
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()

	if versionFormat != formatText {
		out, err := marshal(info, versionFormat)
		if err != nil {
			return err
		}
		return writeOutput(cmd, ioFlags{}, out)
	}

	var out string
	switch {
	case versionShort:
		out = info.Short()
	case versionDetailed:
		out = info.Detailed()
		if info.IsRelease() {
			out += "\nBuild type: release"
		} else {
			out += "\nBuild type: development"
		}
	default:
		out = fmt.Sprintf("mailblocks %s\nGo: %s\nPlatform: %s", info.Short(), info.GoVersion, info.Platform)
	}
	return writeOutput(cmd, ioFlags{}, out)
}
