// Package fileprocessor handles the processing of the input files
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/retroenv/fragtool/internal/options"
	"github.com/retroenv/retrogolib/log"
)

// Executor runs a command for a single input file.
type Executor interface {
	Execute(ctx context.Context, opts options.Program) error
}

// ProcessFiles runs the command for every input file. A failing file is
// logged and does not stop the processing of the other files, a cancelled
// context does. The number of failed files is returned.
func ProcessFiles(ctx context.Context, logger *log.Logger, executor Executor,
	opts options.Program, files []string) (int, error) {

	var failed int
	for _, file := range files {
		opts.Input = file

		if err := executor.Execute(ctx, opts); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return failed, fmt.Errorf("processing %s: %w", file, err)
			}
			logger.Warn("Processing file failed", log.String("file", file), log.Err(err))
			failed++
		}
	}
	return failed, nil
}

// GetFilesToProcess returns list of files to process based on options
func GetFilesToProcess(opts *options.Program) ([]string, error) {
	if opts.Batch != "" {
		matches, err := filepath.Glob(opts.Batch)
		if err != nil {
			return nil, fmt.Errorf("globbing batch pattern: %w", err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match batch pattern '%s'", opts.Batch)
		}
		return matches, nil
	}
	return []string{opts.Input}, nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("fragtool", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
