// Package decompile runs an external decompiler on extracted fragments.
package decompile

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

// DefaultCommand is the decompiler that is used if none is configured.
const DefaultCommand = "retdec-decompiler.py"

// ErrNotInstalled is returned when the decompiler can not be found.
var ErrNotInstalled = errors.New("decompiler is not installed")

// Decompiler invokes the external decompiler for raw big-endian MIPS code.
type Decompiler struct {
	logger  *log.Logger
	command string
}

// New creates a new decompiler runner, an empty command uses DefaultCommand.
func New(logger *log.Logger, command string) *Decompiler {
	if command == "" {
		command = DefaultCommand
	}
	return &Decompiler{
		logger:  logger,
		command: command,
	}
}

// Args returns the decompiler arguments for a fragment file that is loaded
// to the given segment and starts executing at the entry point.
func Args(file string, entryPoint, segment uint32) []string {
	return []string{
		"-k",
		"-a", "mips",
		"-e", "big",
		"-m", "raw",
		"--cleanup",
		"--backend-find-patterns", "all",
		"--backend-var-renamer", "simple",
		"--backend-no-debug-comments",
		"--raw-entry-point", fmt.Sprintf("0x%x", entryPoint),
		"--raw-section-vma", fmt.Sprintf("0x%x", segment),
		file,
	}
}

// Run decompiles the fragment file. The output of the decompiler is logged
// on failure.
func (d *Decompiler) Run(ctx context.Context, file string, entryPoint, segment uint32) error {
	path, err := exec.LookPath(d.command)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotInstalled, d.command)
	}

	args := Args(file, entryPoint, segment)
	d.logger.Info("Running decompiler",
		log.String("command", path),
		log.String("file", file),
		log.Hex("entrypoint", entryPoint),
		log.Hex("vma", segment))

	cmd := exec.CommandContext(ctx, path, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("decompiling file: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}
