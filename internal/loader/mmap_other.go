//go:build !unix

package loader

import (
	"fmt"
	"io"
	"os"
)

func mapFile(file *os.File, size int) (*Image, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(file, data); err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return &Image{data: data}, nil
}
