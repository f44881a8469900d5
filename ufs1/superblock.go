package ufs1

import (
	"encoding/binary"
	"fmt"
)

// superblock holds the immutable geometry derived from the FFS superblock.
type superblock struct {
	blockSize     uint32
	fragSize      uint32
	fragsPerBlock uint32 // derived: blockSize / fragSize
	fragsPerGroup uint32
	inosPerBlock  uint32
	inosPerGroup  uint32
	nfrag         uint32
	ndfrag        uint32
	ncg           uint32
	cgOffset      uint32
	cgMask        uint32
	cylsPerGroup  uint32
	secsPerCyl    uint32

	// per-group fragment offsets, used to build the cylinder-group table
	cfragno uint32
	ifragno uint32
	dfragno uint32

	nblock         uint64 // derived: ceil(nfrag / fragsPerBlock)
	blocksPerGroup uint64 // derived: cylsPerGroup * secsPerCyl * BytesPerSector / blockSize
}

// superblockFromBytes parses and validates a SBSIZE-byte superblock region,
// decoding all multi-byte fields little-endian.
func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < SBSIZE {
		return nil, fmt.Errorf("superblock buffer too short: got %d, need %d", len(b), SBSIZE)
	}

	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != FSMAGIC {
		return nil, fmt.Errorf("%w: bad superblock magic %#x, want %#x", ErrBadImage, magic, FSMAGIC)
	}

	f := b[superblockFieldsOffset:]
	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(f[off : off+4]) }

	sb := &superblock{
		blockSize:     u32(0),
		fragSize:      u32(4),
		fragsPerGroup: u32(8),
		inosPerBlock:  u32(12),
		inosPerGroup:  u32(16),
		nfrag:         u32(20),
		ndfrag:        u32(24),
		ncg:           u32(28),
		cgOffset:      u32(32),
		cgMask:        u32(36),
		cylsPerGroup:  u32(40),
		secsPerCyl:    u32(44),
		cfragno:       u32(48),
		ifragno:       u32(52),
		dfragno:       u32(56),
	}

	if sb.blockSize == 0 || sb.fragSize == 0 || sb.blockSize%sb.fragSize != 0 {
		return nil, fmt.Errorf("%w: block size %d is not a positive multiple of fragment size %d", ErrBadImage, sb.blockSize, sb.fragSize)
	}
	sb.fragsPerBlock = sb.blockSize / sb.fragSize
	switch sb.fragsPerBlock {
	case 1, 2, 4, 8:
	default:
		return nil, fmt.Errorf("%w: fragments per block %d is not one of 1, 2, 4, 8", ErrBadImage, sb.fragsPerBlock)
	}
	if sb.ncg == 0 {
		return nil, fmt.Errorf("%w: cylinder group count is zero", ErrBadImage)
	}
	if sb.blockSize == 0 {
		return nil, fmt.Errorf("%w: block size is zero", ErrBadImage)
	}

	sb.nblock = (uint64(sb.nfrag) + uint64(sb.fragsPerBlock) - 1) / uint64(sb.fragsPerBlock)
	sb.blocksPerGroup = uint64(sb.cylsPerGroup) * uint64(sb.secsPerCyl) * BytesPerSector / uint64(sb.blockSize)
	if sb.blocksPerGroup == 0 {
		return nil, fmt.Errorf("%w: blocks per group computed as zero", ErrBadImage)
	}

	return sb, nil
}
