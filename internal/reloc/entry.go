// Package reloc parses and resolves the relocation tables of fragments.
package reloc

// Kind is the relocation type stored in bits 30-24 of a relocation entry.
type Kind uint32

// Relocation kinds, they match the MIPS ELF relocation types R_MIPS_32,
// R_MIPS_26, R_MIPS_HI16 and R_MIPS_LO16 shifted into the top byte.
const (
	KindPointer Kind = 0x02000000
	KindJump    Kind = 0x04000000
	KindHi16    Kind = 0x05000000
	KindLo16    Kind = 0x06000000
)

const (
	foreignFlag   = 0x80000000
	kindMask      = 0x7f000000
	localAddrMask = 0x00ffffff
)

// String returns the mnemonic of the instruction that the relocation patches.
func (k Kind) String() string {
	switch k {
	case KindPointer:
		return "ptr"
	case KindJump:
		return "j"
	case KindHi16:
		return "lui"
	case KindLo16:
		return "addiu"
	default:
		return "unknown"
	}
}

// Known returns whether the kind is one of the supported relocation kinds.
func (k Kind) Known() bool {
	switch k {
	case KindPointer, KindJump, KindHi16, KindLo16:
		return true
	default:
		return false
	}
}

// Entry is a decoded relocation table entry.
type Entry struct {
	Raw          uint32
	Foreign      bool   // target is not relative to the segment of the fragment
	Kind         Kind
	LocalAddress uint32 // byte offset of the patched word inside the fragment
}

// DecodeEntry decodes a relocation table word.
func DecodeEntry(word uint32) Entry {
	return Entry{
		Raw:          word,
		Foreign:      word&foreignFlag != 0,
		Kind:         Kind(word & kindMask),
		LocalAddress: word & localAddrMask,
	}
}

// WordIndex returns the index of the patched word in the fragment.
func (e Entry) WordIndex() uint32 {
	return e.LocalAddress >> 2
}
