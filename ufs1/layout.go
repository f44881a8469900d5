// Package ufs1 is the filesystem core: a read-only interpreter for the Berkeley
// FFS/UFS1 on-disk layout, exposed through NFSv3 operation semantics.
//
// Geometry and the cylinder-group descriptor table are constructed once at
// Mount and are immutable for the mount's lifetime; every operation
// method is a sequence of blocking backend.Storage reads followed by
// in-memory work, with no state retained between calls.
package ufs1

// On-disk layout constants. The exact superblock/inode byte layout is not
// fixed by the on-disk format alone; this implementation commits to the
// classical BSD FFS/UFS1 layout used by historical newfs/fsck tooling,
// documented here as the single place a differently-laid-out image would
// need patching. See DESIGN.md.
const (
	// SBOFF is the byte offset of the superblock.
	SBOFF = 8192
	// SBSIZE is the length in bytes of the superblock region read at mount.
	SBSIZE = 8192
	// FSMAGIC is the magic number identifying a valid FFS superblock.
	FSMAGIC = 0x011954
	// CGMAGIC is the magic number identifying a valid cylinder-group block.
	CGMAGIC = 0x090255

	// NDADDR is the number of direct block pointers per inode.
	NDADDR = 12
	// NIADDR is the number of indirect block pointers per inode.
	NIADDR = 3

	// BytesPerSector is the FFS constant used to derive blocksPerGroup
	// from cylsPerGroup and secsPerCyl.
	BytesPerSector = 512

	// inodeSize is the fixed size in bytes of one on-disk UFS1 dinode
	// record.
	inodeSize = 128

	// superblockFieldsOffset is the byte offset within the SBSIZE region
	// at which this implementation's geometry fields begin, placed after
	// the magic so a reader validates the magic before trusting geometry.
	superblockFieldsOffset = 4
)

// inode mode bits (IFMT and the type values within it), matching the
// historical UFS1 dinode mode word layout.
const (
	modeIFMT    = 0170000
	modeIFIFO   = 0010000
	modeIFCHR   = 0020000
	modeIFDIR   = 0040000
	modeIFBLK   = 0060000
	modeIFREG   = 0100000
	modeIFLNK   = 0120000
	modeIFSOCK  = 0140000
	modeIFWHT   = 0160000
	modePermBit = 07777
)

// ValidationMode selects whether cylinder-group blocks are validated at
// mount time.
type ValidationMode int

const (
	// ValidationLazy skips cylinder-group validation at mount; this is
	// the default and matches the historical reader's disabled `checkcg`
	// compile-time flag.
	ValidationLazy ValidationMode = iota
	// ValidationStrict reads and validates every cylinder-group block's
	// magic at mount, and rejects a fractional block count in any
	// non-last cylinder group. Matches the original's `checkcg 1` path.
	ValidationStrict
)
