// Package detector handles byte order detection of ROM images.
package detector

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

// Format is the byte order layout of an image file.
type Format int

// Supported image layouts.
const (
	Raw          Format = iota // no known magic, treated as big-endian
	BigEndian                  // .z64
	ByteSwapped                // .v64, 16 bit words swapped
	LittleEndian               // .n64, 32 bit words swapped
)

// First word of an image in the different layouts.
const (
	magicBigEndian    = 0x80371240
	magicByteSwapped  = 0x37804012
	magicLittleEndian = 0x40123780
)

// ErrUnsupportedFormat is returned for images that are not big-endian.
var ErrUnsupportedFormat = errors.New("unsupported image byte order")

func (f Format) String() string {
	switch f {
	case BigEndian:
		return "z64"
	case ByteSwapped:
		return "v64"
	case LittleEndian:
		return "n64"
	default:
		return "raw"
	}
}

// Detector handles byte order detection from the first word of the image.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the layout of the image and returns an error wrapping
// ErrUnsupportedFormat if fragments can not be scanned in it. Images are
// never converted.
func (d *Detector) Detect(image []byte) (Format, error) {
	format := Detect(image)
	d.logger.Debug("Detected image format", log.Stringer("format", format))

	if err := Check(format); err != nil {
		return format, err
	}
	if format == Raw {
		d.logger.Warn("Unknown image header, assuming big-endian byte order")
	}
	return format, nil
}

// Detect returns the layout of the image based on its first word.
func Detect(image []byte) Format {
	if len(image) < 4 {
		return Raw
	}

	switch binary.BigEndian.Uint32(image) {
	case magicBigEndian:
		return BigEndian
	case magicByteSwapped:
		return ByteSwapped
	case magicLittleEndian:
		return LittleEndian
	default:
		return Raw
	}
}

// Check returns an error for layouts that are not big-endian.
func Check(format Format) error {
	switch format {
	case ByteSwapped, LittleEndian:
		return fmt.Errorf("%w: %s images need to be converted to z64", ErrUnsupportedFormat, format)
	default:
		return nil
	}
}
