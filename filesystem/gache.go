package filesystem

import (
	"io"
	"os"
)

// GacheFs lets gache persist its documents through the swappable backend.
type GacheFs struct{}

// OpenFile opens a file using the current backend.
func (GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return API().OpenFile(name, flag, perm)
}

// MkdirAll creates a directory using the current backend.
func (GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return API().MkdirAll(path, perm)
}
