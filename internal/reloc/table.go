package reloc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/retroenv/fragtool/internal/fragment"
)

// ErrOutOfRange is returned when a relocation refers to data outside of the
// fragment.
var ErrOutOfRange = errors.New("out of fragment range")

// RangeError describes a read past the end of the fragment data.
type RangeError struct {
	What   string
	Offset uint64 // byte offset of the first byte that is out of range
	Size   int    // size of the fragment data
	Err    error  // underlying error, optional
}

func (e *RangeError) Error() string {
	msg := fmt.Sprintf("%s at offset 0x%x is %s (size 0x%x)", e.What, e.Offset, ErrOutOfRange, e.Size)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrOutOfRange and the underlying error if set.
func (e *RangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOutOfRange}
	}
	return []error{ErrOutOfRange, e.Err}
}

// Table is the relocation table of one fragment.
type Table struct {
	entries []byte
	count   int
}

// Parse locates the relocation table of the fragment using the offset in its
// header. The whole table is checked to be inside of the fragment data, the
// entries are decoded lazily.
func Parse(data []byte) (*Table, error) {
	header, err := fragment.ParseHeader(data)
	if err != nil {
		return nil, &RangeError{
			What:   "fragment header",
			Offset: uint64(len(data)),
			Size:   len(data),
			Err:    err,
		}
	}
	return ParseAt(data, header.RelocOffset)
}

// ParseAt returns the relocation table that starts at the given byte offset
// of the fragment. The offset is aligned down to a word boundary.
func ParseAt(data []byte, relocOffset uint32) (*Table, error) {
	start := uint64(relocOffset/4) * 4
	count, err := readWord(data, start, "relocation count")
	if err != nil {
		return nil, err
	}

	first := start + 4
	end := first + uint64(count)*4
	if end > uint64(len(data)) {
		return nil, &RangeError{
			What:   fmt.Sprintf("relocation table with %d entries", count),
			Offset: first,
			Size:   len(data),
		}
	}

	return &Table{
		entries: data[first:end],
		count:   int(count),
	}, nil
}

// Len returns the number of relocations.
func (t *Table) Len() int {
	return t.count
}

// All returns an iterator over all relocation entries in table order.
func (t *Table) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i := range t.count {
			word := binary.BigEndian.Uint32(t.entries[4*i:])
			if !yield(i, DecodeEntry(word)) {
				return
			}
		}
	}
}

func readWord(data []byte, offset uint64, what string) (uint32, error) {
	if offset+4 > uint64(len(data)) {
		return 0, &RangeError{
			What:   what,
			Offset: offset,
			Size:   len(data),
		}
	}
	return binary.BigEndian.Uint32(data[offset:]), nil
}
