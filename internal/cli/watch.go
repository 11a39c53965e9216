package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	lessonloop "github.com/lessonloop/lessonloop-go"
	"github.com/lessonloop/lessonloop-go/pkg/events"
	"github.com/lessonloop/lessonloop-go/pkg/supervise"
)

// NewWatchCommand creates the watch command: connect and stream every
// applied event until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream replica events to stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts)
		},
	}
}

func runWatch(opts *RootOptions) error {
	if opts.URL == "" {
		return fmt.Errorf("--url or LESSONLOOP_URL is required")
	}

	log := opts.Logger()
	client, err := lessonloop.New(&lessonloop.Config{
		URL:       opts.URL,
		CachePath: opts.Cache,
		Logger:    log,
		OnStateChange: func(s supervise.State) {
			log.Info("connection state", "state", s.String())
		},
		OnEvent: func(ev events.Event) {
			fmt.Fprintln(os.Stdout, ev.EventKind())
		},
		OnRejection: func(method, recordID string, err error) {
			log.Warn("intent rejected", "method", method, "record_id", recordID, "error", err)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return client.Close(context.Background())
}
