// Package report writes the text output of the commands.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/retroenv/fragtool/internal/deps"
	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/reloc"
)

var catalogHeader = []string{
	"pcode", "addr", "num", "entrypoint", "offset_code", "offset_relocs", "romsize", "ramsize", "vma",
}

// Catalog writes the fragments as CSV with decimal values.
func Catalog(w io.Writer, entries []fragment.Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(catalogHeader); err != nil {
		return fmt.Errorf("writing catalog header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.ProductCode,
			strconv.Itoa(e.Offset),
			strconv.Itoa(e.Number),
			formatUint(e.EntryPoint),
			formatUint(e.CodeOffset),
			formatUint(e.RelocOffset),
			formatUint(e.ROMSize),
			formatUint(e.RAMSize),
			formatUint(e.Segment),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing catalog entry: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	return nil
}

// Scan writes one line describing a stored scan.
func Scan(w io.Writer, id, productCode, file string, fragments int) error {
	if _, err := fmt.Fprintf(w, "%s %s %s %d fragments\n", id, productCode, file, fragments); err != nil {
		return fmt.Errorf("writing scan: %w", err)
	}
	return nil
}

// Relocations writes the count of relocations followed by one line per
// relocation: index, entry word, local address, resolved address, kind and
// target fragment number.
func Relocations(w io.Writer, resolved []reloc.Resolved) error {
	if _, err := fmt.Fprintf(w, "%d relocations.\n", len(resolved)); err != nil {
		return fmt.Errorf("writing relocation count: %w", err)
	}
	for _, r := range resolved {
		if _, err := fmt.Fprintf(w, "%5d %08x %8x %08x\t%s\t%d\n",
			r.Index, r.Raw, r.LocalAddress, r.Address, r.Kind, r.Target.Number()); err != nil {
			return fmt.Errorf("writing relocation %d: %w", r.Index, err)
		}
	}
	return nil
}

// Dependencies writes the dependency set of one fragment as sentence.
func Dependencies(w io.Writer, dependencies []int) error {
	var err error
	if len(dependencies) == 0 {
		_, err = io.WriteString(w, "No dependencies.\n")
	} else {
		_, err = fmt.Fprintf(w, "Depends on %s.\n", joinNumbers(dependencies))
	}
	if err != nil {
		return fmt.Errorf("writing dependencies: %w", err)
	}
	return nil
}

// Graph writes one line per fragment with its dependencies. Fragments whose
// relocations could not be resolved are listed with the error.
func Graph(w io.Writer, results []deps.Result) error {
	for _, r := range results {
		line := joinNumbers(r.Dependencies)
		if r.Err != nil {
			line = "error: " + r.Err.Error()
		}
		if _, err := fmt.Fprintf(w, "%d: %s\n", r.Fragment.Number, line); err != nil {
			return fmt.Errorf("writing dependency graph: %w", err)
		}
	}
	return nil
}

// ReverseGraph writes one line per referenced fragment with the fragments
// that depend on it, in ascending order of the referenced fragment.
func ReverseGraph(w io.Writer, reversed map[int][]int) error {
	for _, number := range slices.Sorted(maps.Keys(reversed)) {
		if _, err := fmt.Fprintf(w, "%d: %s\n", number, joinNumbers(reversed[number])); err != nil {
			return fmt.Errorf("writing reverse dependency graph: %w", err)
		}
	}
	return nil
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
