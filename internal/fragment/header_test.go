package fragment

import (
	"encoding/binary"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func headerBytes(words ...uint32) []byte {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(data[4*i:], w)
	}
	return data
}

func TestIsValidHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"valid", headerBytes(0x08400000, 0, Magic1, Magic2), true},
		{"empty", nil, false},
		{"too short", headerBytes(0x08400000, 0, Magic1), false},
		{"first magic wrong", headerBytes(0, 0, Magic1+1, Magic2), false},
		{"second magic wrong", headerBytes(0, 0, Magic1, 0), false},
		{"swapped magic", headerBytes(0, 0, Magic2, Magic1), false},
		{"little endian magic", []byte{0, 0, 0, 0, 0, 0, 0, 0, 'G', 'A', 'R', 'F', 'T', 'N', 'E', 'M'}, false},
		{"ascii magic", append(make([]byte, 8), []byte("FRAGMENT")...), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidHeader(tt.data))
		})
	}
}

func TestParseHeader(t *testing.T) {
	data := headerBytes(0x084c0000, 0, Magic1, Magic2, 0x20, 0x1234, 0x5000, 0x6000)

	h, err := ParseHeader(data)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x084c0000), h.EntryWord)
	assert.Equal(t, uint32(0x20), h.CodeOffset)
	assert.Equal(t, uint32(0x1234), h.RelocOffset)
	assert.Equal(t, uint32(0x5000), h.ROMSize)
	assert.Equal(t, uint32(0x6000), h.RAMSize)
	assert.Equal(t, 3, h.Number())
	assert.Equal(t, uint32(0x81300000), h.EntryPoint())
	assert.Equal(t, uint32(0x81300000), h.Segment())

	_, err = ParseHeader(data[:HeaderSize-1])
	assert.ErrorIs(t, err, ErrShortHeader)
}

func TestNumber(t *testing.T) {
	tests := []struct {
		name string
		word uint32
		want int
	}{
		{"segment 16", 0x08400000, 0},
		{"segment 17", 0x08440000, 1},
		{"segment 19 with offset", 0x084c0123, 3},
		{"segment 0xff", 0x0bfc0000, 0xff - FirstSegment},
		{"base image segment", 0x08000400, -FirstSegment},
		{"jal opcode", 0x0c400000, NotFragment},
		{"nop", 0x00000000, NotFragment},
		{"lui", 0x3c048170, NotFragment},
		{"all bits", 0xffffffff, NotFragment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Number(tt.word))
			// pure function
			assert.Equal(t, Number(tt.word), Number(tt.word))
		})
	}
}

func TestNumberRoundTrip(t *testing.T) {
	for k := range 0xf0 {
		target := uint32(FirstSegment+k) << 20
		for _, offset := range []uint32{0, 0x4, 0x1230, 0xffffc} {
			word := uint32(jumpOpcode)<<26 | ((target|offset)>>2)&jumpTargetMask
			assert.Equal(t, k, Number(word))
		}
	}
}

func TestNumberRejectsOtherOpcodes(t *testing.T) {
	for opcode := range uint32(64) {
		if opcode == jumpOpcode {
			continue
		}
		word := opcode<<26 | 0x00400000
		assert.Equal(t, NotFragment, Number(word))
	}
}

func TestEntryAddress(t *testing.T) {
	assert.Equal(t, uint32(0x81000000), EntryAddress(0x08400000))
	assert.Equal(t, uint32(0x8130048c), EntryAddress(0x084c0123))
	// the opcode is ignored
	assert.Equal(t, uint32(0x81000000), EntryAddress(0x0c400000))
	assert.Equal(t, uint32(0x8ffffffc), EntryAddress(0xffffffff))
}

func TestSegmentBaseAlignment(t *testing.T) {
	words := []uint32{0, 1, 0x08400000, 0x084c0123, 0x0bffffff, 0x7fffffff, 0xffffffff, 0x12345678}
	for _, w := range words {
		base := SegmentBase(EntryAddress(w))
		assert.Equal(t, uint32(0), base%SegmentSize)
		assert.Equal(t, EntryAddress(w), base|SegmentOffset(EntryAddress(w)))
	}
}

func TestSegmentOffset(t *testing.T) {
	assert.Equal(t, uint32(0x0048c), SegmentOffset(0x8130048c))
	assert.Equal(t, uint32(0), SegmentOffset(0x81300000))
	assert.Equal(t, uint32(0xfffff), SegmentOffset(0x813fffff))
}
