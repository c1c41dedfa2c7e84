package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "blockctl",
		Short: "Work with speech-to-text block documents",
		Long: `blockctl turns provider transcription responses into block documents.
It can normalize a saved provider response offline or submit audio to a
running blockifier and wait for the finished document.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(newNormalizeCmd(), newSubmitCmd())
	return root
}

// setupLogging sends console logs to stderr so stdout carries only documents.
func setupLogging(cmd *cobra.Command) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.Kitchen}).
		With().
		Timestamp().
		Logger()
}
