package ufs1

import "errors"

// ErrBadImage is returned by Mount when the superblock magic does not
// match FSMAGIC, or when derived geometry is nonsensical, and by DumpBlock
// for an out-of-range block. The NFS3 operation methods never return it;
// they report failures as nfs3.Status values.
var ErrBadImage = errors.New("bad ffs image")
