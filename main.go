// Package main implements the main entry point for a tool that scans N64 ROM
// images for overlay fragments and analyzes their relocations.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/retroenv/fragtool/internal/cli"
	"github.com/retroenv/fragtool/internal/config"
	"github.com/retroenv/fragtool/internal/fileprocessor"
	"github.com/retroenv/fragtool/internal/pipeline"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	retrocli "github.com/retroenv/retrogolib/cli"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	cmd := retrocli.NewCommand("fragtool", "N64 ROM fragment scanner and relocation analyzer")
	cmd.SetVersion(buildinfo.Version(version, commit, date))

	for _, c := range cli.Commands() {
		cmd.AddSubcommand(c.Name, c.Description, func(args []string) int {
			return run(ctx, c.Name, args)
		})
	}

	os.Exit(cmd.Execute(os.Args[1:]))
}

func run(ctx context.Context, command string, args []string) int {
	opts, err := cli.ParseFlags(command, args)
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			usageErr.ShowUsage()
			if usageErr.Help() {
				return 0
			}
			return 1
		}
		logger.Error(err.Error())
		return 1
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	settings, err := config.Load(opts.Config)
	if err != nil {
		logger.Error("Loading config failed", log.Err(err))
		return 1
	}

	files, err := fileprocessor.GetFilesToProcess(&opts)
	if err != nil {
		logger.Error(err.Error())
		return 1
	}

	p := pipeline.New(logger, settings, os.Stdout)
	failed, err := fileprocessor.ProcessFiles(ctx, logger, p, opts, files)
	if err != nil {
		// Handle context cancellation (Ctrl+C) gracefully
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
		} else {
			logger.Error("Processing failed", log.Err(err))
		}
		return 1
	}
	if failed > 0 {
		logger.Error("Processing failed", log.Int("files", failed))
		return 1
	}
	return 0
}
