package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"gemstore/internal/models"
	"gemstore/pkg/rabbitmq"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewEventsCommand follows order-request events from RabbitMQ until
// interrupted.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Print order request events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.RabbitMQURL == "" {
				return fmt.Errorf("RABBITMQ_URL is not set")
			}
			logger := rootOpts.logger(cmd, cfg)

			mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
			if err != nil {
				return err
			}
			defer mq.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			logger.WithFields(logrus.Fields{
				"exchange": rabbitmq.ExchangeName,
				"binding":  rabbitmq.BindingKey,
			}).Info("waiting for order request events")
			err = mq.TailOrderRequestEvents(ctx, func(event models.OrderRequestEvent) error {
				if rootOpts.Format == "json" {
					return enc.Encode(event)
				}
				_, err := fmt.Fprintf(out, "%s  %-22s request=%d user=%d product=%d qty=%d status=%s %s\n",
					event.OccurredAt.Format("2006-01-02 15:04:05"), event.Type, event.OrderRequestID,
					event.UserID, event.ProductID, event.Quantity, event.Status, event.AdminMessage)
				return err
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

