package orbitctl

import "github.com/spf13/cobra"

// captureCmd groups the subcommands that drive a capture session.
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Run and inspect sampling capture sessions",
}

func init() {
	RootCmd.AddCommand(captureCmd)
}
