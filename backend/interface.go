// Package backend defines the disk provider contract the filesystem core reads
// through: a source of fixed-size byte ranges identified by byte offset.
// Concrete providers live in subpackages, e.g. github.com/ffsnfs/ffsnfs/backend/file.
package backend

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

var (
	// ErrNotSuitable is returned when an operation is not supported by the
	// underlying storage (e.g. Sys() on a non-*os.File backend).
	ErrNotSuitable = errors.New("backing storage is not suitable for this operation")
)

// File is the minimal read-only handle a provider wraps.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Storage supplies read(offset, length) -> buffer|error. Reads must be
// satisfied in full or fail; there is no seek state carried between calls
// that matters to readers using ReadAt.
type Storage interface {
	File
	// Sys exposes the OS-specific file for ioctl calls via fd, where
	// supported (e.g. backend/blockdev sizing). Returns ErrNotSuitable
	// otherwise.
	Sys() (*os.File, error)
}
