package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/retroenv/fragtool/internal/deps"
	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/reloc"
	"github.com/retroenv/fragtool/internal/scanner"
	"github.com/retroenv/fragtool/internal/testrom"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), log.NewTestLogger(t), Memory)
	assert.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddScan(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	catalog := fragment.Catalog{
		{ProductCode: "npoe0", Offset: 0x200000, Number: 5, EntryPoint: 0x81500040, Segment: 0x81500000},
		{ProductCode: "npoe0", Offset: 0x100000, Number: 2, EntryPoint: 0x81200000, Segment: 0x81200000,
			CodeOffset: 0x20, RelocOffset: 0x1000, ROMSize: 0x2000, RAMSize: 0x2400},
		{ProductCode: "npoe0", Offset: 0x300000, Number: 2, EntryPoint: 0x81200010, Segment: 0x81200000},
	}

	id, err := s.AddScan(ctx, Scan{ProductCode: "npoe0", File: "game.z64", Size: fragment.MinImageSize}, catalog)
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	scans, err := s.Scans(ctx)
	assert.NoError(t, err)
	assert.Len(t, scans, 1)
	assert.Equal(t, id, scans[0].ID)
	assert.Equal(t, "npoe0", scans[0].ProductCode)
	assert.Equal(t, "game.z64", scans[0].File)
	assert.Equal(t, fragment.MinImageSize, scans[0].Size)

	entries, err := s.Fragments(ctx, id)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, 2, entries[0].Number)
	assert.Equal(t, 0x100000, entries[0].Offset)
	assert.Equal(t, 0x300000, entries[1].Offset)
	assert.Equal(t, 5, entries[2].Number)

	// duplicate numbers resolve to the first inserted fragment
	e, err := s.Fragment(ctx, id, 2)
	assert.NoError(t, err)
	assert.Equal(t, catalog[1], e)

	_, err = s.Fragment(ctx, id, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScansAreSeparated(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "frags.db")

	s, err := Open(ctx, log.NewTestLogger(t), path)
	assert.NoError(t, err)

	first, err := s.AddScan(ctx, Scan{ProductCode: fragment.PlaceholderProductCode, File: "a.z64"}, fragment.Catalog{{Number: 1}})
	assert.NoError(t, err)
	second, err := s.AddScan(ctx, Scan{File: "b.z64"}, fragment.Catalog{{Number: 1}, {Number: 2}})
	assert.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.NoError(t, s.Close())

	// reopening keeps the data of earlier runs
	s, err = Open(ctx, log.NewTestLogger(t), path)
	assert.NoError(t, err)
	defer func() { _ = s.Close() }()

	scans, err := s.Scans(ctx)
	assert.NoError(t, err)
	assert.Len(t, scans, 2)
	assert.Equal(t, fragment.PlaceholderProductCode, scans[0].ProductCode)
	assert.Equal(t, "b.z64", scans[1].File)
	assert.False(t, scans[0].Created.IsZero())

	entries, err := s.Fragments(ctx, first)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	entries, err = s.Fragments(ctx, second)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestDependencies(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	pair := testrom.TwoFragments()
	image := pair.ROM.Bytes()
	catalog := scanner.New(log.NewTestLogger(t)).Scan(image)

	id, err := s.AddScan(ctx, Scan{ProductCode: "test1", File: "test.z64", Size: len(image)}, catalog)
	assert.NoError(t, err)

	for _, e := range catalog {
		resolved, err := reloc.ResolveAll(e.Data(image), e.Segment)
		assert.NoError(t, err)
		assert.NoError(t, s.AddRelocations(ctx, id, e, resolved))

		expected, err := deps.Of(e, e.Data(image))
		assert.NoError(t, err)
		stored, err := s.Dependencies(ctx, id, e.Number)
		assert.NoError(t, err)
		assert.Equal(t, expected, stored)
	}

	stored, err := s.Dependencies(ctx, id, 100)
	assert.NoError(t, err)
	assert.Empty(t, stored)
}

func TestDependenciesSkipUnknownKind(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)

	entry := fragment.Entry{ProductCode: "test1", Number: 1, Segment: 0x81100000}
	id, err := s.AddScan(ctx, Scan{ProductCode: "test1"}, fragment.Catalog{entry})
	assert.NoError(t, err)

	resolved := []reloc.Resolved{
		{
			Entry:   reloc.DecodeEntry(0x85000080),
			Address: 0x81700000,
			Target:  reloc.Classify(0x81700000),
		},
		{
			Entry:   reloc.DecodeEntry(0x03000050),
			Index:   1,
			Address: reloc.Unresolvable,
			Target:  reloc.Classify(reloc.Unresolvable),
			Unknown: true,
		},
	}
	assert.NoError(t, s.AddRelocations(ctx, id, entry, resolved))

	stored, err := s.Dependencies(ctx, id, entry.Number)
	assert.NoError(t, err)
	assert.Equal(t, []int{7}, stored)
	assert.Equal(t, deps.FromResolved(entry.Number, resolved), stored)
}
