// Package loader handles ROM image loading operations.
package loader

import (
	"fmt"
	"os"

	"github.com/retroenv/fragtool/internal/fragment"
)

// Image is a read-only ROM image. The bytes must not be modified and are
// invalid after Close.
type Image struct {
	data  []byte
	unmap func([]byte) error
}

// Bytes returns the content of the image.
func (i *Image) Bytes() []byte {
	return i.data
}

// Size returns the size of the image in bytes.
func (i *Image) Size() int {
	return len(i.data)
}

// Close releases the image memory.
func (i *Image) Close() error {
	if i.data == nil {
		return nil
	}
	data := i.data
	i.data = nil
	if i.unmap == nil {
		return nil
	}
	if err := i.unmap(data); err != nil {
		return fmt.Errorf("unmapping image: %w", err)
	}
	return nil
}

// Loader handles loading ROM images from disk.
type Loader struct{}

// New creates a new image loader.
func New() *Loader {
	return &Loader{}
}

// Load opens the file and maps it read-only into memory. Files that are too
// small to contain any fragment are rejected before mapping.
func (l *Loader) Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("getting file info of %s: %w", path, err)
	}
	if err := fragment.CheckImageSize(int(info.Size())); err != nil {
		return nil, fmt.Errorf("checking file %s: %w", path, err)
	}

	img, err := mapFile(file, int(info.Size()))
	if err != nil {
		return nil, fmt.Errorf("loading file %s: %w", path, err)
	}
	return img, nil
}
