package fragment

// Entry describes a fragment that was found in an image.
type Entry struct {
	ProductCode string
	Offset      int // byte offset of the header in the image
	Number      int
	EntryPoint  uint32
	CodeOffset  uint32
	RelocOffset uint32
	ROMSize     uint32
	RAMSize     uint32
	Segment     uint32
}

// NewEntry creates a catalog entry for the header found at the image offset.
func NewEntry(productCode string, offset int, h Header) Entry {
	return Entry{
		ProductCode: productCode,
		Offset:      offset,
		Number:      h.Number(),
		EntryPoint:  h.EntryPoint(),
		CodeOffset:  h.CodeOffset,
		RelocOffset: h.RelocOffset,
		ROMSize:     h.ROMSize,
		RAMSize:     h.RAMSize,
		Segment:     h.Segment(),
	}
}

// Data returns the bytes of the fragment inside of the image. The range is
// clamped to the end of the image if the size in the header exceeds it.
func (e Entry) Data(image []byte) []byte {
	if e.Offset < 0 || e.Offset >= len(image) {
		return nil
	}
	end := uint64(e.Offset) + uint64(e.ROMSize)
	if end > uint64(len(image)) {
		end = uint64(len(image))
	}
	return image[e.Offset:end]
}

// Truncated returns whether the fragment exceeds the image.
func (e Entry) Truncated(imageSize int) bool {
	return uint64(e.Offset)+uint64(e.ROMSize) > uint64(imageSize)
}

// Catalog is the list of all fragments of an image in ascending offset order.
// Fragment numbers are not guaranteed to be unique.
type Catalog []Entry

// Lookup returns the first fragment with the given number.
func (c Catalog) Lookup(number int) (Entry, bool) {
	for _, e := range c {
		if e.Number == number {
			return e, true
		}
	}
	return Entry{}, false
}
