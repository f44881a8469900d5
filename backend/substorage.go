package backend

import (
	"fmt"
	"io"
	"io/fs"
	"os"
)

// SubStorage presents a byte range [offset, offset+size) of an underlying
// Storage as its own Storage, so a filesystem need not know where on the
// backing image it begins.
type SubStorage struct {
	underlying Storage
	offset     int64
	size       int64
}

// Sub returns a view of u restricted to [offset, offset+size).
func Sub(u Storage, offset, size int64) Storage {
	return SubStorage{
		underlying: u,
		offset:     offset,
		size:       size,
	}
}

func (s SubStorage) Stat() (fs.FileInfo, error) {
	return s.underlying.Stat()
}

func (s SubStorage) Read(bytes []byte) (int, error) {
	return s.underlying.Read(bytes)
}

func (s SubStorage) Close() error {
	return s.underlying.Close()
}

func (s SubStorage) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 || off+int64(len(p)) > s.size {
		return 0, fmt.Errorf("read range [%d, %d) is outside %d-byte sub-storage", off, off+int64(len(p)), s.size)
	}
	return s.underlying.ReadAt(p, s.offset+off)
}

func (s SubStorage) Seek(offset int64, whence int) (int64, error) {
	var (
		pos int64
		err error
	)

	switch whence {
	case io.SeekStart:
		pos, err = s.underlying.Seek(offset+s.offset, io.SeekStart)
	case io.SeekCurrent:
		pos, err = s.underlying.Seek(offset, io.SeekCurrent)
	case io.SeekEnd:
		pos, err = s.underlying.Seek(s.offset+s.size+offset, io.SeekStart)
	default:
		return -1, ErrNotSuitable
	}

	if err != nil {
		return -1, err
	}

	return pos - s.offset, nil
}

func (s SubStorage) Sys() (*os.File, error) {
	return s.underlying.Sys()
}
