//go:build !linux

package blockdev

import (
	"errors"

	"github.com/ffsnfs/ffsnfs/backend"
)

// Open is not supported on this platform; raw block device ioctls
// (BLKSSZGET/BLKGETSIZE64) are Linux-specific.
func Open(pathName string) (backend.Storage, error) {
	return nil, errors.New("blockdev: raw block devices are not supported on this platform")
}
