package fragment

import (
	"errors"
	"fmt"
)

// MinImageSize is the smallest image that can contain fragments, the first
// megabyte is occupied by the boot code and the base image.
const MinImageSize = 1<<20 + 4096

// ErrImageTooSmall is returned for images below MinImageSize.
var ErrImageTooSmall = errors.New("rom too small")

const (
	productCodeOffset = 0x3b
	regionOffset      = 0x3f

	// PlaceholderProductCode is used for images that are too short to
	// contain a product code.
	PlaceholderProductCode = "_____"
)

// CheckImageSize returns an error if an image of the given size can not be
// scanned.
func CheckImageSize(size int) error {
	if size < MinImageSize {
		return fmt.Errorf("%w: %d bytes, need at least %d", ErrImageTooSmall, size, MinImageSize)
	}
	return nil
}

// ProductCode returns the 4 character game code and the region digit of the
// cartridge header as lower case string, for example "nps1". Characters that
// are not usable in file names are replaced by underscores.
func ProductCode(image []byte) string {
	if len(image) <= regionOffset {
		return PlaceholderProductCode
	}

	var code [5]byte
	for i := range 4 {
		c := image[productCodeOffset+i]
		switch {
		case c >= 'A' && c <= 'Z':
			code[i] = c + ('a' - 'A')
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			code[i] = c
		default:
			code[i] = '_'
		}
	}

	region := image[regionOffset] + '0'
	if region >= '0' && region <= '9' {
		code[4] = region
	} else {
		code[4] = '_'
	}
	return string(code[:])
}
