// Package rewrite is the high-level entry point for running the
// transformation pipeline over files and directories.
package rewrite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/fortress-labs/floop/internal"
	tt "github.com/fortress-labs/floop/internal/types"
)

// Engine is the part of the rewrite engine this package drives.
type Engine interface {
	Run(filePath string) (*internal.Result, error)
	RunSource(source []byte) (*internal.Result, error)
	IgnorePass(name string)
}

// Config represents the overall configuration with a name and the pass
// table.
type Config struct {
	Name   string                   `yaml:"name"`
	Passes map[string]tt.ConfigPass `yaml:"passes"`
}

// New builds an engine from a configuration file. An empty path yields
// the default pipeline.
func New(configurationPath string, logger *zap.Logger) (*internal.Engine, error) {
	var config Config
	if configurationPath != "" {
		parsed, err := parseConfigurationFile(configurationPath)
		if err != nil {
			return nil, err
		}
		config = parsed
	}
	return internal.NewEngine(config.Passes, logger), nil
}

// ApplyFile runs the pipeline on a file and writes the rewritten
// source back in place. The file is left untouched when nothing
// applies.
func ApplyFile(engine Engine, filePath string) ([]tt.Change, error) {
	result, err := engine.Run(filePath)
	if err != nil {
		return nil, err
	}
	if len(result.Changes) == 0 {
		return nil, nil
	}

	mode := os.FileMode(0o644)
	if info, err := os.Stat(filePath); err == nil {
		mode = info.Mode()
	}
	if err := os.WriteFile(filePath, result.Output, mode); err != nil {
		return nil, fmt.Errorf("error writing %s: %w", filePath, err)
	}
	return result.Changes, nil
}

// CheckFile runs the pipeline on a file without writing anything.
func CheckFile(engine Engine, filePath string) ([]tt.Change, error) {
	result, err := engine.Run(filePath)
	if err != nil {
		return nil, err
	}
	return result.Changes, nil
}

// ProcessSource runs the pipeline on in-memory source.
func ProcessSource(engine Engine, source []byte) ([]tt.Change, error) {
	result, err := engine.RunSource(source)
	if err != nil {
		return nil, err
	}
	return result.Changes, nil
}

// ProcessFiles runs the processor over every given path and collects
// the changes.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	paths []string,
	processor func(Engine, string) ([]tt.Change, error),
) ([]tt.Change, error) {
	var allChanges []tt.Change
	for _, path := range paths {
		changes, err := ProcessPath(ctx, logger, engine, path, processor)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return nil, err
		}
		allChanges = append(allChanges, changes...)
	}
	return allChanges, nil
}

// ProcessPath runs the processor over one file, or over every source
// file under one directory.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	engine Engine,
	path string,
	processor func(Engine, string) ([]tt.Change, error),
) ([]tt.Change, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return nil, nil
		}
		return processor(engine, path)
	}

	var files []string
	filepath.Walk(path, func(filePath string, fileInfo os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fileInfo.IsDir() && hasDesiredExtension(filePath) {
			files = append(files, filePath)
		}
		return nil
	})

	// channels for results and errors
	resultChan := make(chan []tt.Change, len(files))
	errorChan := make(chan error, len(files))

	// limit the number of workers
	maxWorkers := runtime.NumCPU()
	sem := make(chan struct{}, maxWorkers)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	for _, filePath := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			sem <- struct{}{}
			go func(fp string) {
				defer func() { <-sem }()

				fileChanges, err := processor(engine, fp)
				if err != nil {
					if logger != nil {
						logger.Error("Error processing file", zap.String("file", fp), zap.Error(err))
					}
					errorChan <- err
					resultChan <- nil
				} else {
					resultChan <- fileChanges
					errorChan <- nil
				}
				bar.Add(1)
			}(filePath)
		}
	}

	var changes []tt.Change
	for range files {
		if err := <-errorChan; err != nil {
			continue
		}
		if result := <-resultChan; result != nil {
			changes = append(changes, result...)
		}
	}

	fmt.Println()
	return changes, nil
}

var desiredExtensions = map[string]bool{
	".f90": true,
	".f95": true,
	".f":   true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}

func parseConfigurationFile(configurationPath string) (Config, error) {
	var config Config

	// Read the configuration file
	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	// Parse the configuration file
	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
