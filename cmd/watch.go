package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd: floop watch
var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Watch directories and report transformations as sources change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}

		engine := newEngine()
		if err := engine.StartWatching(args); err != nil {
			logger.Fatal("Failed to start watching", zap.Error(err))
		}
		defer func() { _ = engine.StopWatching() }()

		logger.Info("watching for changes", zap.Strings("dirs", args))

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
	},
}
