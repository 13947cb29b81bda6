package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AdamCoscia/KnowledgeVIS/internal/infrastructure/messaging/kafka"
	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

var errTailDone = errors.New(errors.ErrCodeInternal, "tail limit reached")

// NewEventsCmd reads the session event stream.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Read the session event stream",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var (
		fromStart bool
		group     string
		types     []string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print session events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc := cliCtx.Config.Kafka
			consumerCfg := kafka.ConsumerConfig{Brokers: kc.Brokers, Topic: kc.Topic, GroupID: group}
			if fromStart {
				consumerCfg.StartOffset = kafka.OffsetOldest
			}
			consumer, err := kafka.NewConsumer(consumerCfg, cliCtx.Logger.Named("events"))
			if err != nil {
				return err
			}
			defer consumer.Close()

			jsonOut := strings.EqualFold(cliCtx.OutputFormat, "json")
			err = consumer.Run(cmd.Context(), eventPrinter(cmd, types, limit, jsonOut))
			if errors.Is(err, errTailDone) {
				return nil
			}
			return err
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&fromStart, "from-beginning", false, "start at the oldest retained event")
	fs.StringVar(&group, "group", "", "consumer group; commits offsets when set")
	fs.StringSliceVar(&types, "type", nil, "only print these event types, e.g. query.completed")
	fs.IntVarP(&limit, "count", "n", 0, "stop after printing this many events")
	return cmd
}

// eventPrinter writes each accepted event on its own line. After limit
// events (when positive) it returns errTailDone.
func eventPrinter(cmd *cobra.Command, types []string, limit int, jsonOut bool) kafka.Handler {
	want := make(map[kafka.EventType]bool, len(types))
	for _, t := range types {
		want[kafka.EventType(strings.TrimSpace(t))] = true
	}
	printed := 0
	return func(_ context.Context, evt *kafka.Event) error {
		if len(want) > 0 && !want[evt.Type] {
			return nil
		}
		out := cmd.OutOrStdout()
		if jsonOut {
			line, err := json.Marshal(evt)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(line))
		} else {
			fmt.Fprintf(out, "%s  %-17s %s  %s\n",
				evt.Timestamp.Format(time.RFC3339), evt.Type, evt.SessionID, string(evt.Payload))
		}
		printed++
		if limit > 0 && printed >= limit {
			return errTailDone
		}
		return nil
	}
}
