//go:build !unix

package mmap

import (
	"io"
	"os"
)

// mapReadOnly copies the file where mmap(2) is unavailable.
func mapReadOnly(f *os.File, n int) ([]byte, func([]byte) error, error) {
	data := make([]byte, n)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}

func readAhead([]byte) {}
