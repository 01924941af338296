package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fortress-labs/floop/formatter"
	tt "github.com/fortress-labs/floop/internal/types"
	"github.com/fortress-labs/floop/rewrite"
)

var (
	applyJsonOutput bool
	outPath         string
)

var applyCmd = &cobra.Command{
	Use:   "apply [paths...]",
	Short: "Apply directive-driven transformations, rewriting files in place",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine := newEngine()
		changes, err := rewrite.ProcessFiles(ctx, logger, engine, args, rewrite.ApplyFile)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}

		printChanges(changes, applyJsonOutput, outPath)
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyJsonOutput, "json", false, "Output changes in JSON format")
	applyCmd.Flags().StringVarP(&outPath, "output", "o", "", "Output path (when using JSON)")
}

func printChanges(changes []tt.Change, isJson bool, jsonOutput string) {
	if !isJson {
		fmt.Print(formatter.GenerateFormattedChanges(changes))
		return
	}

	changesByFile := make(map[string][]tt.Change)
	for _, change := range changes {
		changesByFile[change.Filename] = append(changesByFile[change.Filename], change)
	}
	d, err := json.Marshal(changesByFile)
	if err != nil {
		logger.Error("Error marshalling changes to JSON", zap.Error(err))
		return
	}
	if jsonOutput == "" {
		fmt.Println(string(d))
		return
	}
	if err := os.WriteFile(jsonOutput, d, 0o644); err != nil {
		logger.Error("Error writing JSON output file", zap.Error(err))
	}
}
