// Package testrom builds synthetic ROM images containing fragments for tests.
package testrom

import (
	"encoding/binary"

	"github.com/retroenv/fragtool/internal/fragment"
)

// MIPS instructions used by the synthetic fragments.
const (
	Nop = 0x00000000
	// SllZero is "sll $zero, $zero, 1", a no-op with a non-zero encoding.
	SllZero = 0x00000040

	luiA0   = 0x3c040000 // lui $a0, imm
	addiuA0 = 0x24840000 // addiu $a0, $a0, imm
)

// Relocation kinds as stored in relocation entries.
const (
	KindPointer  = 0x02000000
	KindJump     = 0x04000000
	KindHi16     = 0x05000000
	KindLo16     = 0x06000000
	ForeignFlag  = 0x80000000
	localAddrMax = 0x00ffffff
)

// ROM is a writable synthetic image.
type ROM struct {
	data []byte
}

// New returns a zero filled image of the given size.
func New(size int) *ROM {
	return &ROM{data: make([]byte, size)}
}

// Bytes returns the image data.
func (r *ROM) Bytes() []byte {
	return r.data
}

// PutWord stores a big-endian word at the offset.
func (r *ROM) PutWord(offset int, value uint32) {
	binary.BigEndian.PutUint32(r.data[offset:], value)
}

// SetProductCode writes the 4 character game code and the region byte.
func (r *ROM) SetProductCode(code string, region byte) {
	copy(r.data[0x3b:0x3f], code)
	r.data[0x3f] = region
}

// Header contains the header fields that a test can choose.
type Header struct {
	Number      int
	EntryOffset uint32 // offset of the entry point inside the segment
	DelayWord   uint32
	CodeOffset  uint32
	RelocOffset uint32
	ROMSize     uint32
	RAMSize     uint32
}

// PutHeader writes a complete fragment header at the offset.
func (r *ROM) PutHeader(offset int, h Header) {
	r.PutWord(offset, JumpWord(h.Number, h.EntryOffset))
	r.PutWord(offset+4, h.DelayWord)
	r.PutMagic(offset)
	r.PutWord(offset+16, h.CodeOffset)
	r.PutWord(offset+20, h.RelocOffset)
	r.PutWord(offset+24, h.ROMSize)
	r.PutWord(offset+28, h.RAMSize)
}

// PutMagic writes only the two magic words of a header at the offset.
func (r *ROM) PutMagic(offset int) {
	r.PutWord(offset+8, fragment.Magic1)
	r.PutWord(offset+12, fragment.Magic2)
}

// PutRelocations writes a relocation table at the offset.
func (r *ROM) PutRelocations(offset int, entries ...uint32) {
	r.PutWord(offset, uint32(len(entries)))
	for i, e := range entries {
		r.PutWord(offset+4+4*i, e)
	}
}

// SegmentAddress returns the KSEG0 address of the segment of a fragment.
func SegmentAddress(number int) uint32 {
	return 0x80000000 | uint32(number+fragment.FirstSegment)<<20
}

// JumpWord encodes a j instruction to the given offset inside the segment
// of the fragment.
func JumpWord(number int, offset uint32) uint32 {
	target := SegmentAddress(number) | offset
	return 2<<26 | (target>>2)&0x03ffffff
}

// Relocation encodes a relocation table entry.
func Relocation(foreign bool, kind, localAddress uint32) uint32 {
	word := kind | localAddress&localAddrMax
	if foreign {
		word |= ForeignFlag
	}
	return word
}

// LoadUpper encodes "lui $a0, imm".
func LoadUpper(imm uint16) uint32 {
	return luiA0 | uint32(imm)
}

// AddImmediate encodes "addiu $a0, $a0, imm".
func AddImmediate(imm uint16) uint32 {
	return addiuA0 | uint32(imm)
}

// Pair describes the image returned by TwoFragments.
type Pair struct {
	ROM          *ROM
	FirstOffset  int
	SecondOffset int
	First        int // fragment number of the fragment at FirstOffset
	Second       int // fragment number of the fragment at SecondOffset
}

// TwoFragments returns a minimum size image with the product code "TEST"
// region 1 and two fragments whose headers overlap: the second header starts
// 16 bytes after the first one. Each fragment references the segment of the
// other one with a lui/addiu pair.
//
// Overlapping headers share words, the layout of the first 0x60 bytes is:
//
//	0x00 j first          0x04 nop
//	0x08 FRAG             0x0c MENT
//	0x10 j second         0x14 sll (first.RelocOffset = second.DelayWord = 0x40)
//	0x18 FRAG             0x1c MENT   (first.ROMSize / RAMSize)
//	0x20 second.Code      0x24 second.RelocOffset = 0x40
//	0x28 second.ROMSize   0x2c second.RAMSize
//	0x40 first relocation table
//	0x50 second relocation table (0x40 relative to the second fragment)
func TwoFragments() Pair {
	const (
		firstOffset  = 0x100000
		secondOffset = firstOffset + 0x10
		relocOffset  = 0x40
		firstCode    = 0x80 // lui/addiu of the first fragment
		secondCode   = 0xa0 // lui/addiu of the second fragment
		first        = 3
		second       = 7
	)

	r := New(fragment.MinImageSize)
	r.SetProductCode("TEST", 1)

	r.PutHeader(firstOffset, Header{
		Number:      first,
		RelocOffset: relocOffset,
	})
	// The delay slot word of the second header is the relocation table
	// offset of the first one.
	r.PutHeader(secondOffset, Header{
		Number:      second,
		DelayWord:   SllZero,
		CodeOffset:  0x20,
		RelocOffset: relocOffset,
		ROMSize:     0x100,
		RAMSize:     0x200,
	})

	secondSegment := SegmentAddress(second)
	r.PutWord(firstOffset+firstCode, LoadUpper(uint16(secondSegment>>16)))
	r.PutWord(firstOffset+firstCode+4, AddImmediate(0x0010))
	r.PutRelocations(firstOffset+relocOffset,
		Relocation(true, KindHi16, firstCode),
		Relocation(true, KindLo16, firstCode+4),
	)

	firstSegment := SegmentAddress(first)
	r.PutWord(secondOffset+secondCode, LoadUpper(uint16(firstSegment>>16)))
	r.PutWord(secondOffset+secondCode+4, AddImmediate(0x0020))
	r.PutRelocations(secondOffset+relocOffset,
		Relocation(true, KindHi16, secondCode),
		Relocation(true, KindLo16, secondCode+4),
	)

	return Pair{
		ROM:          r,
		FirstOffset:  firstOffset,
		SecondOffset: secondOffset,
		First:        first,
		Second:       second,
	}
}
