package reloc

import (
	"fmt"

	"github.com/retroenv/fragtool/internal/fragment"
)

// Unresolvable is the address of relocations with an unknown kind.
const Unresolvable = 0xffffffff

// Sentinel fragment numbers of targets that are not a fragment.
const (
	BaseImageNumber = -1
	ReservedNumber  = -999
)

// TargetClass describes what a resolved address points to.
type TargetClass uint8

// Target classes.
const (
	TargetBaseImage TargetClass = iota // resident code, segment 0
	TargetReserved                     // segments 1-15, not used by fragments
	TargetFragment                     // segment 16 and above
)

func (c TargetClass) String() string {
	switch c {
	case TargetBaseImage:
		return "base"
	case TargetReserved:
		return "reserved"
	default:
		return "fragment"
	}
}

// Target is the classification of a resolved address.
type Target struct {
	Class    TargetClass
	Fragment int // fragment number, only valid for TargetFragment
}

// Number returns the fragment number of the target or the sentinel number of
// its class.
func (t Target) Number() int {
	switch t.Class {
	case TargetFragment:
		return t.Fragment
	case TargetBaseImage:
		return BaseImageNumber
	default:
		return ReservedNumber
	}
}

// IsFragment returns whether the target is inside of a fragment segment.
func (t Target) IsFragment() bool {
	return t.Class == TargetFragment
}

// Classify returns which segment the address belongs to.
func Classify(address uint32) Target {
	segment := int(address&0x0ff00000) >> 20
	switch {
	case segment == 0:
		return Target{Class: TargetBaseImage}
	case segment < fragment.FirstSegment:
		return Target{Class: TargetReserved}
	default:
		return Target{Class: TargetFragment, Fragment: segment - fragment.FirstSegment}
	}
}

// Resolved is a relocation with its computed target address.
type Resolved struct {
	Entry

	Index     int    // position in the relocation table
	RawTarget uint32 // the patched word as stored in the fragment
	Address   uint32 // absolute address the relocation points to
	Target    Target
	Unknown   bool // kind is not supported, Address is Unresolvable
}

// Dependency returns the number of the fragment that the relocation refers
// to. Relocations of unknown kind never refer to a fragment.
func (r Resolved) Dependency() (int, bool) {
	if r.Unknown || !r.Target.IsFragment() {
		return 0, false
	}
	return r.Target.Fragment, true
}

// Address computes the absolute address that a relocation of the given kind
// points to. segmentBase is the load address of the fragment that contains
// the relocation.
func Address(kind Kind, foreign bool, rawTarget, segmentBase uint32) uint32 {
	switch kind {
	case KindPointer:
		return rawTarget
	case KindJump:
		return (rawTarget&0x03ffffff)<<2 | 0x80000000
	case KindHi16:
		return (rawTarget&0xffff)<<16 | 0x80000000
	case KindLo16:
		address := rawTarget & 0xffff
		if !foreign {
			address += segmentBase
		}
		return address
	default:
		return Unresolvable
	}
}

// Resolve reads the word patched by the relocation from the fragment data and
// computes and classifies its target address. The sentinel address of an
// unknown kind is classified like any other address.
func Resolve(e Entry, data []byte, segmentBase uint32) (Resolved, error) {
	offset := uint64(e.WordIndex()) * 4
	raw, err := readWord(data, offset, fmt.Sprintf("%s relocation target", e.Kind))
	if err != nil {
		return Resolved{}, err
	}

	address := Address(e.Kind, e.Foreign, raw, segmentBase)
	return Resolved{
		Entry:     e,
		RawTarget: raw,
		Address:   address,
		Target:    Classify(address),
		Unknown:   !e.Kind.Known(),
	}, nil
}

// ResolveAll parses the relocation table of the fragment and resolves all
// relocations. The first relocation that refers to data outside of the
// fragment aborts the processing.
func ResolveAll(data []byte, segmentBase uint32) ([]Resolved, error) {
	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing relocation table: %w", err)
	}

	resolved := make([]Resolved, 0, table.Len())
	for i, e := range table.All() {
		r, err := Resolve(e, data, segmentBase)
		if err != nil {
			return nil, fmt.Errorf("resolving relocation %d: %w", i, err)
		}
		r.Index = i
		resolved = append(resolved, r)
	}
	return resolved, nil
}
