package reloc

import (
	"testing"

	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/testrom"
	"github.com/retroenv/retrogolib/assert"
)

func TestDecodeEntry(t *testing.T) {
	tests := []struct {
		name     string
		word     uint32
		expected Entry
	}{
		{
			name: "local pointer",
			word: 0x02000010,
			expected: Entry{
				Raw:          0x02000010,
				Kind:         KindPointer,
				LocalAddress: 0x10,
			},
		},
		{
			name: "foreign hi16",
			word: 0x85000080,
			expected: Entry{
				Raw:          0x85000080,
				Foreign:      true,
				Kind:         KindHi16,
				LocalAddress: 0x80,
			},
		},
		{
			name: "maximum local address",
			word: 0x06ffffff,
			expected: Entry{
				Raw:          0x06ffffff,
				Kind:         KindLo16,
				LocalAddress: 0xffffff,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DecodeEntry(tt.word))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "ptr", KindPointer.String())
	assert.Equal(t, "j", KindJump.String())
	assert.Equal(t, "lui", KindHi16.String())
	assert.Equal(t, "addiu", KindLo16.String())
	assert.Equal(t, "unknown", Kind(0x07000000).String())
	assert.False(t, Kind(0x07000000).Known())
	assert.True(t, KindJump.Known())
}

func TestAddress(t *testing.T) {
	const segment = 0x81300000

	tests := []struct {
		name     string
		kind     Kind
		foreign  bool
		raw      uint32
		expected uint32
	}{
		{"pointer", KindPointer, false, 0x80123456, 0x80123456},
		{"jump", KindJump, false, 0x0c0c0010, 0x80300040},
		{"hi16", KindHi16, true, 0x3c048170, 0x81700000},
		{"lo16 local", KindLo16, false, 0x24840020, 0x81300020},
		{"lo16 foreign", KindLo16, true, 0x24840020, 0x00000020},
		{"unknown", Kind(0x01000000), false, 0x12345678, Unresolvable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Address(tt.kind, tt.foreign, tt.raw, segment))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		address  uint32
		class    TargetClass
		expected int
	}{
		{0x80000400, TargetBaseImage, BaseImageNumber},
		{0x00000020, TargetBaseImage, BaseImageNumber},
		{0x80100000, TargetReserved, ReservedNumber},
		{0x80f00000, TargetReserved, ReservedNumber},
		{0x81000000, TargetFragment, 0},
		{0x81100000, TargetFragment, 1},
		{0x81700010, TargetFragment, 7},
		{0x8ff00000, TargetFragment, 239},
		{Unresolvable, TargetFragment, 239},
	}

	for _, tt := range tests {
		target := Classify(tt.address)
		assert.Equal(t, tt.class, target.Class)
		assert.Equal(t, tt.expected, target.Number())
	}
}

func TestParse(t *testing.T) {
	rom := testrom.New(0x100)
	rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})
	rom.PutRelocations(0x40,
		testrom.Relocation(false, testrom.KindPointer, 0x80),
		testrom.Relocation(true, testrom.KindJump, 0x84),
	)

	table, err := Parse(rom.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	var entries []Entry
	for i, e := range table.All() {
		assert.Equal(t, len(entries), i)
		entries = append(entries, e)
	}
	assert.Len(t, entries, 2)
	assert.Equal(t, KindPointer, entries[0].Kind)
	assert.False(t, entries[0].Foreign)
	assert.Equal(t, KindJump, entries[1].Kind)
	assert.True(t, entries[1].Foreign)
	assert.Equal(t, uint32(0x84>>2), entries[1].WordIndex())
}

func TestParseEmptyTable(t *testing.T) {
	rom := testrom.New(0x60)
	rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})

	table, err := Parse(rom.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, 0, table.Len())

	resolved, err := ResolveAll(rom.Bytes(), 0x81100000)
	assert.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestParseOutOfRange(t *testing.T) {
	t.Run("count", func(t *testing.T) {
		rom := testrom.New(0x40)
		rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})

		_, err := Parse(rom.Bytes())
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("entries", func(t *testing.T) {
		rom := testrom.New(0x50)
		rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})
		rom.PutWord(0x40, 100)

		_, err := Parse(rom.Bytes())
		assert.ErrorIs(t, err, ErrOutOfRange)

		var rangeErr *RangeError
		assert.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, uint64(0x44), rangeErr.Offset)
		assert.Equal(t, 0x50, rangeErr.Size)
	})

	t.Run("huge count", func(t *testing.T) {
		rom := testrom.New(0x50)
		rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})
		rom.PutWord(0x40, 0xffffffff)

		_, err := Parse(rom.Bytes())
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("short header", func(t *testing.T) {
		_, err := Parse(make([]byte, 16))
		assert.ErrorIs(t, err, ErrOutOfRange)
		assert.ErrorIs(t, err, fragment.ErrShortHeader)

		var rangeErr *RangeError
		assert.ErrorAs(t, err, &rangeErr)
		assert.Equal(t, 16, rangeErr.Size)
	})

	t.Run("empty fragment", func(t *testing.T) {
		_, err := ResolveAll(nil, 0x81100000)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestResolveOutOfRange(t *testing.T) {
	rom := testrom.New(0x60)
	rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})
	rom.PutRelocations(0x40, testrom.Relocation(false, testrom.KindPointer, 0x1000))

	_, err := ResolveAll(rom.Bytes(), 0x81100000)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestResolveAll(t *testing.T) {
	pair := testrom.TwoFragments()
	image := pair.ROM.Bytes()

	resolved, err := ResolveAll(image[pair.FirstOffset:], testrom.SegmentAddress(pair.First))
	assert.NoError(t, err)
	assert.Len(t, resolved, 2)

	hi := resolved[0]
	assert.Equal(t, 0, hi.Index)
	assert.Equal(t, KindHi16, hi.Kind)
	assert.True(t, hi.Foreign)
	assert.Equal(t, uint32(0x81700000), hi.Address)
	assert.Equal(t, TargetFragment, hi.Target.Class)
	assert.Equal(t, pair.Second, hi.Target.Number())

	lo := resolved[1]
	assert.Equal(t, 1, lo.Index)
	assert.Equal(t, KindLo16, lo.Kind)
	assert.Equal(t, uint32(0x10), lo.Address)
	assert.Equal(t, TargetBaseImage, lo.Target.Class)
}

func TestResolveUnknownKind(t *testing.T) {
	rom := testrom.New(0x60)
	rom.PutHeader(0, testrom.Header{Number: 1, RelocOffset: 0x40})
	rom.PutRelocations(0x40, testrom.Relocation(false, 0x03000000, 0x50))

	resolved, err := ResolveAll(rom.Bytes(), 0x81100000)
	assert.NoError(t, err)
	assert.Len(t, resolved, 1)
	r := resolved[0]
	assert.True(t, r.Unknown)
	assert.Equal(t, uint32(Unresolvable), r.Address)
	// the sentinel address is still classified
	assert.Equal(t, TargetFragment, r.Target.Class)
	assert.Equal(t, 239, r.Target.Number())

	_, ok := r.Dependency()
	assert.False(t, ok)
}
