// Package fragment decodes the headers of relocatable code fragments that are
// embedded in a big-endian N64 ROM image.
package fragment

import (
	"encoding/binary"
	"errors"
)

const (
	// HeaderSize is the size of a fragment header in bytes.
	HeaderSize = 32
	// Alignment is the alignment of fragment headers inside the image.
	Alignment = 16

	// Magic1 is the big-endian value of "FRAG".
	Magic1 = 0x46524147
	// Magic2 is the big-endian value of "MENT".
	Magic2 = 0x4d454e54

	// SegmentSize is the size of the memory segment a fragment is loaded to.
	SegmentSize = 1 << 20
	// FirstSegment is the index of the segment that fragment 0 is loaded to,
	// the segments below it belong to the resident base image.
	FirstSegment = 16

	// NotFragment is returned as fragment number for entry words that do not
	// encode a jump instruction.
	NotFragment = -1

	jumpOpcode      = 2
	jumpTargetMask  = 0x03ffffff
	kernelSegment   = 0x80000000
	segmentBaseMask = ^uint32(SegmentSize - 1)
	segmentOffMask  = SegmentSize - 1
)

// ErrShortHeader is returned when less than HeaderSize bytes are available.
var ErrShortHeader = errors.New("fragment header is truncated")

// Header is the fixed size header that every fragment starts with.
type Header struct {
	EntryWord   uint32 // j instruction to the fragment entry point
	DelayWord   uint32 // nop in the branch delay slot
	Magic1      uint32
	Magic2      uint32
	CodeOffset  uint32
	RelocOffset uint32 // offset of the relocation table from the fragment start
	ROMSize     uint32 // size in the image, including the header
	RAMSize     uint32 // size once loaded into memory
}

// IsValidHeader returns whether the data starts with the fragment magic.
func IsValidHeader(data []byte) bool {
	if len(data) < 16 {
		return false
	}
	return binary.BigEndian.Uint32(data[8:]) == Magic1 &&
		binary.BigEndian.Uint32(data[12:]) == Magic2
}

// ParseHeader decodes the header at the start of data. The magic words are
// not checked, use IsValidHeader for that.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrShortHeader
	}

	be := binary.BigEndian
	return Header{
		EntryWord:   be.Uint32(data[0:]),
		DelayWord:   be.Uint32(data[4:]),
		Magic1:      be.Uint32(data[8:]),
		Magic2:      be.Uint32(data[12:]),
		CodeOffset:  be.Uint32(data[16:]),
		RelocOffset: be.Uint32(data[20:]),
		ROMSize:     be.Uint32(data[24:]),
		RAMSize:     be.Uint32(data[28:]),
	}, nil
}

// Number returns the fragment number that the entry word jumps into or
// NotFragment if the word is not a j instruction.
func Number(entryWord uint32) int {
	if entryWord>>26 != jumpOpcode {
		return NotFragment
	}
	target := (entryWord & jumpTargetMask) << 2
	return int((target>>20)&0xff) - FirstSegment
}

// EntryAddress returns the jump target of the entry word as KSEG0 address.
func EntryAddress(entryWord uint32) uint32 {
	return (entryWord&jumpTargetMask)<<2 | kernelSegment
}

// SegmentBase returns the 1 MiB aligned base of the segment that contains
// the address.
func SegmentBase(address uint32) uint32 {
	return address & segmentBaseMask
}

// SegmentOffset returns the offset of the address inside of its segment.
func SegmentOffset(address uint32) uint32 {
	return address & segmentOffMask
}

// Number returns the fragment number encoded in the entry word.
func (h Header) Number() int {
	return Number(h.EntryWord)
}

// EntryPoint returns the entry address of the fragment.
func (h Header) EntryPoint() uint32 {
	return EntryAddress(h.EntryWord)
}

// Segment returns the base address of the segment the fragment is loaded to.
func (h Header) Segment() uint32 {
	return SegmentBase(h.EntryPoint())
}
