// Package scanner finds all fragment headers in a ROM image.
package scanner

import (
	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/retrogolib/log"
)

// Scanner walks an image at header alignment and catalogs every fragment.
type Scanner struct {
	logger *log.Logger
}

// New creates a new scanner.
func New(logger *log.Logger) *Scanner {
	return &Scanner{
		logger: logger,
	}
}

// Scan returns the catalog of all fragments of the image in ascending offset
// order. Every aligned offset is checked, a fragment header can start inside
// of the previous one.
func (s *Scanner) Scan(image []byte) fragment.Catalog {
	productCode := fragment.ProductCode(image)
	catalog := fragment.Catalog{}

	for offset := 0; offset+16 <= len(image); offset += fragment.Alignment {
		data := image[offset:]
		if !fragment.IsValidHeader(data) {
			continue
		}

		header, err := fragment.ParseHeader(data)
		if err != nil {
			s.logger.Warn("Skipping truncated fragment header",
				log.Hex("offset", offset),
				log.Err(err))
			continue
		}

		entry := fragment.NewEntry(productCode, offset, header)
		if entry.Number == fragment.NotFragment {
			s.logger.Warn("Fragment entry point is not a jump instruction",
				log.Hex("offset", offset),
				log.Hex("word", header.EntryWord))
		}
		if entry.Truncated(len(image)) {
			s.logger.Debug("Fragment size exceeds image",
				log.Int("fragment", entry.Number),
				log.Hex("size", entry.ROMSize))
		}

		s.logger.Debug("Found fragment",
			log.Int("fragment", entry.Number),
			log.Hex("offset", offset),
			log.Hex("entrypoint", entry.EntryPoint))
		catalog = append(catalog, entry)
	}

	return catalog
}
