package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/filevault/pkg/app"
	"github.com/yeisme/filevault/pkg/log"
)

var (
	serveConfigPath string

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app.NewApp(serveConfigPath)
			defer func() {
				if err := a.Shutdown(); err != nil {
					log.Logger().Warn().Err(err).Msg("shutdown failed")
				}
			}()

			return a.Run()
		},
	}
)

// registerServeCommands 注册服务启动命令.
func registerServeCommands() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "./", "config file path or directory")
	rootCmd.AddCommand(serveCmd)
}
