package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortress-labs/floop/rewrite"
)

var checkJsonOutput bool

// checkCmd reports what apply would do without touching any file. It
// exits nonzero when transformations are pending, so it can gate CI.
var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Report pending transformations without rewriting anything",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine := newEngine()
		changes, err := rewrite.ProcessFiles(ctx, logger, engine, args, rewrite.CheckFile)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}

		printChanges(changes, checkJsonOutput, outPath)

		if len(changes) > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJsonOutput, "json", false, "Output changes in JSON format")
}
