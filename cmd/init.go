package cmd

import (
	"fmt"

	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	tt "github.com/fortress-labs/floop/internal/types"
	"github.com/fortress-labs/floop/rewrite"
)

// initCmd: floop init
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Run: func(cmd *cobra.Command, args []string) {
		if err := initConfigurationFile(cfgFile); err != nil {
			logger.Error("Error initializing config file", zap.Error(err))
			return
		}
		if cfgFile == "" {
			cfgFile = ".floop.yaml"
		}
		fmt.Printf("Configuration file created/updated: %s\n", cfgFile)
	},
}

func initConfigurationFile(configurationPath string) error {
	if configurationPath == "" {
		configurationPath = ".floop.yaml"
	}

	// Create a yaml file with the pass table
	config := rewrite.Config{
		Name: "floop",
		Passes: map[string]tt.ConfigPass{
			"loop-interchange": {Options: map[string]string{"project-bounds": "false"}},
			"loop-fusion":      {},
			"loop-fission":     {},
			"section-hoist":    {},
		},
	}
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	f, err := os.Create(configurationPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(d)
	if err != nil {
		return err
	}

	return nil
}
