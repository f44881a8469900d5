//go:build linux

// Package blockdev provides a backend.Storage that reads directly from a
// raw Linux block device, validating the read range against the device's
// reported size, where backend/file passes every read straight through to
// the underlying file.
package blockdev

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/ffsnfs/ffsnfs/backend"
	"golang.org/x/sys/unix"
)

type device struct {
	f          *os.File
	sectorSize int64
	sizeBytes  int64
}

// Open opens a raw block device (e.g. /dev/sda, /dev/nbd0) read-only and
// queries its logical sector size and total size via ioctl, the same
// per-platform pattern used to size partitionable devices.
func Open(pathName string) (backend.Storage, error) {
	f, err := os.OpenFile(pathName, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("could not open block device %s: %w", pathName, err)
	}

	fd := int(f.Fd())

	sectorSize, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not query logical sector size of %s: %w", pathName, err)
	}

	sizeBytes, err := unix.IoctlGetUint64(fd, unix.BLKGETSIZE64)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not query size of %s: %w", pathName, err)
	}

	return &device{
		f:          f,
		sectorSize: int64(sectorSize),
		sizeBytes:  int64(sizeBytes),
	}, nil
}

var _ backend.Storage = (*device)(nil)

// SectorSize returns the device's reported logical sector size in bytes.
func (d *device) SectorSize() int64 { return d.sectorSize }

// Size returns the device's reported total size in bytes.
func (d *device) Size() int64 { return d.sizeBytes }

func (d *device) Sys() (*os.File, error) { return d.f, nil }

func (d *device) Stat() (fs.FileInfo, error) { return d.f.Stat() }

func (d *device) Read(b []byte) (int, error) { return d.f.Read(b) }

func (d *device) Close() error { return d.f.Close() }

func (d *device) Seek(offset int64, whence int) (int64, error) { return d.f.Seek(offset, whence) }

func (d *device) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > d.sizeBytes {
		return 0, fmt.Errorf("read range [%d, %d) is outside device of size %d", off, off+int64(len(p)), d.sizeBytes)
	}
	return d.f.ReadAt(p, off)
}
