// Package cli implements the lessonloop command line tool: a thin
// operational shell over the sync client for watching and inspecting a
// local replica.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lessonloop/lessonloop-go/pkg/logger"
)

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	URL     string
	Cache   string
	Verbose bool
}

// Logger builds the console logger all subcommands share.
func (o *RootOptions) Logger() logger.Logger {
	level := zerolog.InfoLevel
	if o.Verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
	return logger.NewZerolog(zl)
}

// NewRootCommand creates the lessonloop root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "lessonloop",
		Short:         "LessonLoop sync client",
		Long:          "Watch and inspect a local LessonLoop replica.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.URL, "url", os.Getenv("LESSONLOOP_URL"), "authority URL (ws or wss)")
	cmd.PersistentFlags().StringVar(&opts.Cache, "cache", os.Getenv("LESSONLOOP_CACHE"), "path to the SQLite replica cache")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))

	return cmd
}
