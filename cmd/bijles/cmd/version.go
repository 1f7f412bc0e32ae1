package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set by ldflags during build.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("bijles " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
