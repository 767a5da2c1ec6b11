/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"

	"github.com/inkpress/apiserver/internal/media"
	"github.com/inkpress/apiserver/internal/mq"
	"github.com/inkpress/apiserver/internal/storage"
	"github.com/spf13/cobra"
)

// workerCmd groups background consumers.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run background workers",
}

var mediaCleanupCmd = &cobra.Command{
	Use:   "media-cleanup",
	Short: "Retry cover image deletes that failed during post deletion",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.MQ.Backend == "none" {
			return errors.New("media-cleanup needs MQ_BACKEND set to rabbitmq or pubsub")
		}

		ctx := cmd.Context()
		objects, err := storage.NewBackend(ctx, cfg.Media)
		if err != nil {
			return err
		}
		broker, err := mq.NewBackend(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		queue := mq.New(broker)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing message broker")
			}
		}()

		gateway := media.NewGateway(objects, cfg.Media)
		worker := media.NewCleanupWorker(queue, cfg.MQ.CleanupChannel, gateway, cfg.Media.DeleteTimeout, logger)
		if err := worker.Run(ctx); err != nil {
			return fmt.Errorf("media cleanup worker: %w", err)
		}
		logger.Info().Msg("media cleanup worker stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(mediaCleanupCmd)
}
