/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/inkpress/apiserver/internal/server"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Starts the inkpress API server",
	Long: `Starts the inkpress API server. Usage:

	inkpress server
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		srv, err := server.New(cmd.Context(), cfg, logger)
		if err != nil {
			logger.Error().Err(err).Msg("failed to start server")
			return fmt.Errorf("start server: %w", err)
		}
		if err := srv.Run(cmd.Context()); err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
