// Package cli handles command line interface logic
package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/retroenv/fragtool/internal/options"
	retrocli "github.com/retroenv/retrogolib/cli"
)

// Command describes a subcommand of the tool.
type Command struct {
	Name        string
	Description string
}

// Commands returns all supported subcommands.
func Commands() []Command {
	return []Command{
		{options.Scan, "scan a ROM image and print the fragment catalog as CSV"},
		{options.Relocs, "print the resolved relocations of a fragment"},
		{options.Depends, "print the fragments that a fragment depends on"},
		{options.Extract, "write a fragment to a file"},
		{options.ExtractAll, "write all fragments to files"},
		{options.MakeDB, "store fragment catalogs of ROM images in a sqlite database"},
		{options.Decompile, "extract a fragment and run the decompiler on it"},
		{options.Query, "list the scans of a fragment database"},
	}
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *retrocli.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// Help returns whether the usage was requested explicitly.
func (e *UsageError) Help() bool {
	return e.msg == ""
}

// ShowUsage prints the usage of the command that failed to parse.
func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Printf("error: %s\n\n", e.msg)
	}
	e.flags.ShowUsage()
	fmt.Println()
}

// ParseFlags parses the arguments of a subcommand and returns the program
// options.
func ParseFlags(command string, args []string) (options.Program, error) {
	opts := options.Program{Command: command}
	flags := retrocli.NewFlagSet("fragtool " + command)
	flags.AddSection("Options", &opts.Flags)

	var parse func() error
	switch command {
	case options.Scan:
		var pos options.Image
		flags.AddSection("Storage", &opts.Storage)
		flags.AddPositional(&pos)
		parse = func() error {
			opts.Input = pos.ROM
			return nil
		}

	case options.Relocs:
		var pos options.Fragment
		flags.AddPositional(&pos)
		parse = func() error {
			return assignFragment(&opts, pos.ROM, pos.Fragnum)
		}

	case options.Depends:
		var pos options.DependsArgs
		flags.AddSection("Graph", &opts.Graph)
		flags.AddPositional(&pos)
		parse = func() error {
			return parseDepends(&opts, pos)
		}

	case options.Extract, options.Decompile:
		var pos options.Fragment
		flags.AddSection("Output", &opts.Output)
		flags.AddPositional(&pos)
		parse = func() error {
			return assignFragment(&opts, pos.ROM, pos.Fragnum)
		}

	case options.ExtractAll:
		var pos options.Image
		flags.AddSection("Output", &opts.Output)
		flags.AddPositional(&pos)
		parse = func() error {
			opts.Input = pos.ROM
			return nil
		}

	case options.MakeDB:
		var pos options.DatabaseArgs
		flags.AddSection("Database", &opts.Collection)
		flags.AddPositional(&pos)
		parse = func() error {
			return parseMakeDB(&opts, pos)
		}

	case options.Query:
		var pos options.QueryArgs
		flags.AddSection("Query", &opts.Stored)
		flags.AddPositional(&pos)
		parse = func() error {
			opts.Database = pos.Database
			opts.Input = pos.Database
			return nil
		}

	default:
		return opts, fmt.Errorf("unsupported command '%s'", command)
	}

	remaining, err := flags.Parse(args)
	if err != nil {
		if errors.Is(err, retrocli.ErrHelpRequested) {
			return opts, &UsageError{flags: flags}
		}
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	if len(remaining) > 0 {
		return opts, &UsageError{
			flags: flags,
			msg:   fmt.Sprintf("unexpected argument %s, options have to be passed before the ROM file", remaining[0]),
		}
	}

	if err := parse(); err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	return opts, nil
}

func assignFragment(opts *options.Program, rom, fragnum string) error {
	opts.Input = rom
	number, err := strconv.Atoi(fragnum)
	if err != nil || number < 0 {
		return fmt.Errorf("invalid fragment number '%s'", fragnum)
	}
	opts.Fragment = number
	return nil
}

func parseDepends(opts *options.Program, pos options.DependsArgs) error {
	if opts.Reverse && !opts.All {
		return errors.New("-reverse can only be used together with -all")
	}
	if opts.All {
		if pos.Fragnum != "" {
			return errors.New("no fragment number can be passed together with -all")
		}
		opts.Input = pos.ROM
		return nil
	}
	if pos.Fragnum == "" {
		return errors.New("missing fragment number")
	}
	return assignFragment(opts, pos.ROM, pos.Fragnum)
}

func parseMakeDB(opts *options.Program, pos options.DatabaseArgs) error {
	opts.Database = pos.Database
	opts.Input = pos.ROM
	switch {
	case opts.Batch == "" && opts.Input == "":
		return errors.New("missing ROM file or -batch pattern")
	case opts.Batch != "" && opts.Input != "":
		return errors.New("a ROM file can not be passed together with -batch")
	}
	return nil
}
