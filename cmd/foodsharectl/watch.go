package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/realtime"
)

var (
	watchAddr   string
	watchTable  string
	watchFilter string
	watchToken  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream realtime row changes from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := watchToken
		if token == "" {
			token = os.Getenv("FOODSHARE_TOKEN")
		}
		if token == "" {
			return errors.New("--token or FOODSHARE_TOKEN is required")
		}

		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer logger.Sync()

		client, err := realtime.NewClient(watchAddr, watchTable, watchFilter, token, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rm := realtime.NewReadModel(watchTable)
		err = client.Run(ctx, func(ev model.ChangeEvent) {
			printEvent(cmd.OutOrStdout(), rm, ev)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// printEvent применяет событие к локальной модели и печатает строку сводки.
func printEvent(w io.Writer, rm *realtime.ReadModel, ev model.ChangeEvent) {
	applied, err := rm.Apply(ev)
	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", ev.Table, ev.EventType, err)
		return
	}
	state := "applied"
	if !applied {
		state = "stale"
	}
	fmt.Fprintf(w, "%s %s %s (%d rows)\n", ev.Table, ev.EventType, state, rm.Len())
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "http://localhost:8080", "server address")
	watchCmd.Flags().StringVar(&watchTable, "table", "listings", "table to watch")
	watchCmd.Flags().StringVar(&watchFilter, "filter", "", "row filter, e.g. status=eq.available")
	watchCmd.Flags().StringVar(&watchToken, "token", "", "session token (defaults to $FOODSHARE_TOKEN)")

	rootCmd.AddCommand(watchCmd)
}
