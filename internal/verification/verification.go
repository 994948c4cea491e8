// Package verification verifies that extracted fragment files match the
// image they were extracted from.
package verification

import (
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrogolib/log"
)

// ErrMismatch is returned when the file content differs from the expected
// data.
var ErrMismatch = errors.New("file content mismatch")

// maxReportedDiffs limits the number of logged mismatching offsets.
const maxReportedDiffs = 10

// VerifyFile re-reads the file and compares it byte by byte with the
// expected data.
func VerifyFile(logger *log.Logger, path string, expected []byte) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file for comparison: %w", err)
	}

	if err := checkBufferEqual(logger, expected, content); err != nil {
		return fmt.Errorf("verifying '%s': %w", path, err)
	}
	return nil
}

func checkBufferEqual(logger *log.Logger, input, output []byte) error {
	if len(input) != len(output) {
		return fmt.Errorf("%w: mismatched lengths, %d != %d", ErrMismatch, len(input), len(output))
	}

	var diffs uint64
	first := -1
	for i := range input {
		if input[i] == output[i] {
			continue
		}

		diffs++
		if first < 0 {
			first = i
		}
		if diffs <= maxReportedDiffs {
			logger.Warn("Offset mismatch",
				log.Hex("offset", i),
				log.Hex("expected", input[i]),
				log.Hex("got", output[i]))
		}
	}
	if diffs == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d offset mismatches, first at 0x%x", ErrMismatch, diffs, first)
}
