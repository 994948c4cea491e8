// Package deps derives the set of fragments that a fragment references
// through its relocations.
package deps

import (
	"context"
	"fmt"
	"runtime"

	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/reloc"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
	"golang.org/x/sync/errgroup"
)

// Of resolves all relocations of the fragment and returns the distinct
// numbers of the other fragments it references in ascending order.
func Of(entry fragment.Entry, data []byte) ([]int, error) {
	resolved, err := reloc.ResolveAll(data, entry.Segment)
	if err != nil {
		return nil, err
	}
	return FromResolved(entry.Number, resolved), nil
}

// FromResolved reduces resolved relocations of the fragment with the given
// number to its dependency set.
func FromResolved(number int, resolved []reloc.Resolved) []int {
	numbers := set.New[int]()
	for _, r := range resolved {
		dep, ok := r.Dependency()
		if !ok || dep == number {
			continue
		}
		numbers.Add(dep)
	}
	return set.Sorted(numbers)
}

// Result contains the dependencies of one cataloged fragment.
type Result struct {
	Fragment     fragment.Entry
	Relocations  []reloc.Resolved
	Dependencies []int
	Err          error // set if the relocations could not be resolved
}

// Builder resolves the dependencies of all fragments of an image.
type Builder struct {
	logger  *log.Logger
	workers int
}

// New creates a new builder that uses the given number of parallel workers,
// 0 uses one worker per CPU.
func New(logger *log.Logger, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		logger:  logger,
		workers: workers,
	}
}

// All resolves every fragment of the catalog. The results are returned in
// catalog order. A fragment whose relocation table is out of range gets its
// error recorded in the result and does not stop the processing of the
// others, only a cancelled context does.
func (b *Builder) All(ctx context.Context, image []byte, catalog fragment.Catalog) ([]Result, error) {
	results := make([]Result, len(catalog))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i, entry := range catalog {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("resolving fragment %d: %w", entry.Number, err)
			}
			results[i] = b.resolve(image, entry)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (b *Builder) resolve(image []byte, entry fragment.Entry) Result {
	result := Result{Fragment: entry}

	resolved, err := reloc.ResolveAll(entry.Data(image), entry.Segment)
	if err != nil {
		b.logger.Warn("Resolving fragment relocations failed",
			log.Int("fragment", entry.Number),
			log.Hex("offset", entry.Offset),
			log.Err(err))
		result.Err = fmt.Errorf("fragment %d: %w", entry.Number, err)
		return result
	}

	result.Relocations = resolved
	result.Dependencies = FromResolved(entry.Number, resolved)
	b.logger.Debug("Resolved fragment dependencies",
		log.Int("fragment", entry.Number),
		log.Int("relocations", len(resolved)),
		log.Int("dependencies", len(result.Dependencies)))
	return result
}

// Reverse inverts the dependency graph: it returns for every referenced
// fragment number the ascending numbers of the fragments that depend on it.
// Results with an error are skipped.
func Reverse(results []Result) map[int][]int {
	dependents := map[int]set.Set[int]{}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, dep := range r.Dependencies {
			s, ok := dependents[dep]
			if !ok {
				s = set.New[int]()
				dependents[dep] = s
			}
			s.Add(r.Fragment.Number)
		}
	}

	reversed := make(map[int][]int, len(dependents))
	for number, s := range dependents {
		reversed[number] = set.Sorted(s)
	}
	return reversed
}
