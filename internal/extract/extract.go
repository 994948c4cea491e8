// Package extract writes fragments of an image to separate files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/retrogolib/log"
)

// FileName returns the name of the file that a fragment is extracted to.
func FileName(productCode string, number int) string {
	return fmt.Sprintf("%s-frag%03d.bin", productCode, number)
}

// Extractor writes fragments into an output directory.
type Extractor struct {
	logger    *log.Logger
	directory string
}

// New creates a new extractor that writes to the given directory, an empty
// name uses the current directory.
func New(logger *log.Logger, directory string) *Extractor {
	if directory == "" {
		directory = "."
	}
	return &Extractor{
		logger:    logger,
		directory: directory,
	}
}

// Write stores the bytes of the fragment in a new file and returns its path.
// Fragments that exceed the image are truncated to the image end.
func (e *Extractor) Write(image []byte, entry fragment.Entry) (string, error) {
	data := entry.Data(image)
	if data == nil {
		return "", fmt.Errorf("fragment %d offset 0x%x is outside of the image", entry.Number, entry.Offset)
	}
	if entry.Truncated(len(image)) {
		e.logger.Warn("Fragment exceeds image, extracting truncated data",
			log.Int("fragment", entry.Number),
			log.Hex("size", entry.ROMSize),
			log.Hex("available", len(data)))
	}

	if err := os.MkdirAll(e.directory, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(e.directory, FileName(entry.ProductCode, entry.Number))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing fragment file: %w", err)
	}

	e.logger.Debug("Extracted fragment",
		log.Int("fragment", entry.Number),
		log.String("file", path),
		log.Int("size", len(data)))
	return path, nil
}
