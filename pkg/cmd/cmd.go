// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// debug 控制 config debug 等子命令的详细输出.
	debug bool

	rootCmd = &cobra.Command{
		Use:   "filevault",
		Short: "A metadata layer over object storage: paths, versions, approvals, locks and audit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable verbose debug output")


	registerServeCommands()
	registerReconcileCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
