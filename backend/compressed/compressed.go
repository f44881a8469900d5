// Package compressed wraps a backend.Storage holding a compressed disk
// image (.img.xz or .img.lz4) and presents the decompressed bytes as an
// ordinary backend.Storage, so the filesystem core never has to know the image on
// disk was compressed.
//
// Decompression happens once, in full, at Open time: FFS images are read
// at arbitrary offsets during traversal (superblock, cylinder groups,
// inode tables, data blocks, all non-sequential), which neither lz4 nor
// xz's streaming readers support directly. The decompressed image is
// spooled into memory.
package compressed

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ffsnfs/ffsnfs/backend"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"
)

// Format identifies a supported compression codec.
type Format int

const (
	// FormatNone passes bytes through unchanged.
	FormatNone Format = iota
	// FormatXZ decodes github.com/ulikunitz/xz streams.
	FormatXZ
	// FormatLZ4 decodes github.com/pierrec/lz4 streams.
	FormatLZ4
)

// DetectFormat guesses a Format from a file name's extension.
func DetectFormat(name string) Format {
	switch {
	case strings.HasSuffix(name, ".xz"):
		return FormatXZ
	case strings.HasSuffix(name, ".lz4"):
		return FormatLZ4
	default:
		return FormatNone
	}
}

type spooled struct {
	data []byte
}

var _ backend.Storage = (*spooled)(nil)

// Open decompresses the full contents of underlying using format and
// returns a backend.Storage over the decompressed bytes.
func Open(underlying backend.Storage, format Format) (backend.Storage, error) {
	info, err := underlying.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat compressed image: %w", err)
	}

	r := io.NewSectionReader(underlying, 0, info.Size())

	var src io.Reader
	switch format {
	case FormatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("could not open xz stream: %w", err)
		}
		src = xr
	case FormatLZ4:
		src = lz4.NewReader(r)
	case FormatNone:
		src = r
	default:
		return nil, fmt.Errorf("unknown compression format %d", format)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("could not decompress image: %w", err)
	}

	return &spooled{data: data}, nil
}

func (s *spooled) Stat() (fs.FileInfo, error) {
	return nil, backend.ErrNotSuitable
}

func (s *spooled) Read(b []byte) (int, error) {
	copy(b, s.data)
	n := len(b)
	if n > len(s.data) {
		n = len(s.data)
	}
	return n, nil
}

func (s *spooled) Close() error { return nil }

func (s *spooled) Seek(offset int64, whence int) (int64, error) {
	return 0, backend.ErrNotSuitable
}

func (s *spooled) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (s *spooled) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(s.data)) {
		return 0, fmt.Errorf("read range [%d, %d) is outside decompressed image of size %d", off, off+int64(len(p)), len(s.data))
	}
	n := copy(p, s.data[off:off+int64(len(p))])
	return n, nil
}
