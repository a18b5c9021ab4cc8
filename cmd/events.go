/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/listingdesk/listingdesk/internal/mq"
	"github.com/listingdesk/listingdesk/types"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect listing change events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Log listing change events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log := loadConfig()

		queue, err := mq.Open(cmd.Context(), cfg.MQ)
		if errors.Is(err, mq.ErrDisabled) {
			return errors.New("events need MQ_BACKEND set to pubsub or rabbitmq")
		}
		if err != nil {
			return err
		}
		defer queue.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info().Str("channel", cfg.MQ.ListingChannel).Msg("tailing listing events")
		err = queue.Subscribe(ctx, cfg.MQ.ListingChannel, func(ctx context.Context, msg mq.Message) error {
			var event types.ListingEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				// Malformed payloads are acked so they are not redelivered.
				log.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping malformed event")
				return nil
			}
			log.Info().
				Str("event_id", event.EventID.String()).
				Str("type", string(event.Type)).
				Int("listing_id", event.ListingID).
				Str("actor", event.Actor).
				Time("occurred_at", event.OccurredAt).
				Msg("listing event")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
