// Package options contains the program options.
package options

// Commands of the program.
const (
	Scan       = "scan"
	Relocs     = "relocs"
	Depends    = "depends"
	Extract    = "extract"
	ExtractAll = "extract-all"
	MakeDB     = "mkdb"
	Decompile  = "decompile"
	Query      = "query"
)

// Image contains the positional argument of commands that work on a whole
// image.
type Image struct {
	ROM string `arg:"positional" usage:"big-endian N64 ROM image (.z64)" required:"true"`
}

// Fragment contains the positional arguments of commands that work on a
// single fragment.
type Fragment struct {
	ROM     string `arg:"positional" usage:"big-endian N64 ROM image (.z64)" required:"true"`
	Fragnum string `arg:"positional" usage:"fragment number" required:"true"`
}

// DependsArgs contains the positional arguments of the depends command, the
// fragment number is optional when all fragments are processed.
type DependsArgs struct {
	ROM     string `arg:"positional" usage:"big-endian N64 ROM image (.z64)" required:"true"`
	Fragnum string `arg:"positional" usage:"fragment number, omit with -all"`
}

// DatabaseArgs contains the positional arguments of the mkdb command.
type DatabaseArgs struct {
	Database string `arg:"positional" usage:"sqlite database file to create or extend" required:"true"`
	ROM      string `arg:"positional" usage:"big-endian N64 ROM image (.z64), omit with -batch"`
}

// QueryArgs contains the positional argument of the query command.
type QueryArgs struct {
	Database string `arg:"positional" usage:"sqlite database file created by mkdb or scan -db" required:"true"`
}

// Flags contains behavior options that all commands support.
type Flags struct {
	Config string `flag:"c" usage:"config file"`
	Debug  bool   `flag:"debug" usage:"enable debug logging"`
	Quiet  bool   `flag:"q" usage:"quiet mode"`
}

// Storage contains the database options of the scan command.
type Storage struct {
	Database string `flag:"db" usage:"store the catalog in this sqlite database instead of memory"`
}

// Output contains the options of the extracting commands.
type Output struct {
	Directory string `flag:"o" usage:"output directory (default: config output.directory)"`
	Verify    bool   `flag:"verify" usage:"verify extracted files by comparing them to the image"`
}

// Graph contains the options of the depends command.
type Graph struct {
	All     bool `flag:"all" usage:"print the dependencies of all fragments"`
	Reverse bool `flag:"reverse" usage:"print the dependents of every fragment, requires -all"`
}

// Collection contains the options of the mkdb command.
type Collection struct {
	Batch       string `flag:"batch" usage:"add all ROM images matching pattern (e.g. *.z64)"`
	Relocations bool   `flag:"relocs" usage:"also store the resolved relocations of all fragments"`
}

// Stored contains the options of the query command.
type Stored struct {
	Dependencies bool `flag:"deps" usage:"print the dependencies of every fragment from the stored relocations"`
}

// Program options of the tool.
type Program struct {
	Flags
	Storage
	Output
	Graph
	Collection
	Stored

	Command  string
	Input    string // ROM image file
	Fragment int    // fragment number for single fragment commands
}
