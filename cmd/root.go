package cmd

import (
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
	"go.uber.org/zap"

	"github.com/fortress-labs/floop/internal"
	"github.com/fortress-labs/floop/rewrite"
)

var (
	cfgFile      string
	ignorePasses string
	timeout      time.Duration

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:              "floop [paths...]",
	Short:            "floop - directive-driven loop transformations for Fortran sources",
	TraverseChildren: true, // Prioritize subcommands
	Run: func(cmd *cobra.Command, args []string) {
		// no subcommand
		if len(args) == 0 {
			// display help when only 'floop' is entered
			_ = cmd.Help()
			return
		}
		// Format: floop [path1 path2 ...] => behaves like the apply subcommand
		applyCmd.Run(applyCmd, args)
	},
}

func Execute() error {
	defer func() { _ = logger.Sync() }()
	return rootCmd.Execute()
}

func newEngine() *internal.Engine {
	engine, err := rewrite.New(cfgFile, logger)
	if err != nil {
		logger.Fatal("Failed to initialize rewrite engine", zap.Error(err))
	}
	if ignorePasses != "" {
		for _, pass := range strings.Split(ignorePasses, ",") {
			engine.IgnorePass(strings.TrimSpace(pass))
		}
	}
	return engine
}

func init() {
	logger, _ = zap.NewProduction()

	if env.Bool("NO_COLOR") {
		color.NoColor = true
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", env.Str("FLOOP_CONFIG", ""), "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&ignorePasses, "ignore", "", "Comma-separated list of passes to skip")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Set a timeout for the run")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
}
