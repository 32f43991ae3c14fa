/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shoplite/apiserver/config"
	"github.com/shoplite/apiserver/internal/events"
	"github.com/shoplite/apiserver/internal/mq"
)

// workerCmd represents the worker command. It tails the account event
// channel; real deployments hang mailers and analytics off it.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consumes account events from the message broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Connect(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND must be configured to run the worker")
		}
		defer func() {
			_ = broker.Close()
		}()

		slog.Info("worker consuming account events", "channel", events.ChannelUserEvents)

		err = broker.Subscribe(ctx, events.ChannelUserEvents, func(_ context.Context, msg mq.Message) error {
			var event events.Event
			if err := json.Unmarshal(msg.Body, &event); err != nil {
				slog.Warn("dropping undecodable event", "message_id", msg.ID, "err", err)
				return nil
			}
			slog.Info("account event",
				"event", event.Type,
				"user_id", event.UserID,
				"email", event.Email,
				"occurred_at", event.OccurredAt,
			)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
