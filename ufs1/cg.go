package ufs1

import (
	"encoding/binary"
	"fmt"
)

// cgDescriptor is one cylinder group's derived block numbers. The full
// table has ncg entries and is built once at Mount and never mutated
// afterward.
type cgDescriptor struct {
	baseBlockNo       uint64
	cgBlockNo         uint64
	inodeTableBlockNo uint64
	dataBlockNo       uint64
}

// buildCGTable derives, for each of sb.ncg cylinder groups, the starting
// block number, the cylinder-group-block number, the inode-table block
// number, and the first data block number.
func buildCGTable(sb *superblock) []cgDescriptor {
	table := make([]cgDescriptor, sb.ncg)
	for i := range table {
		gi := uint64(i)
		base := sb.blocksPerGroup*gi + uint64(sb.cgOffset)*(gi &^ uint64(sb.cgMask))
		table[i] = cgDescriptor{
			baseBlockNo:       base,
			cgBlockNo:         base + uint64(sb.cfragno)/uint64(sb.fragsPerBlock),
			inodeTableBlockNo: base + uint64(sb.ifragno)/uint64(sb.fragsPerBlock),
			dataBlockNo:       base + uint64(sb.dfragno)/uint64(sb.fragsPerBlock),
		}
	}
	return table
}

// cgBlockHeaderSize is the fixed header preceding the fragment-allocation
// bitmap within a cylinder-group block: magic(4) + fmapoff(4) + nfrag(4).
const cgBlockHeaderSize = 12

// cgBlock is the in-memory view of one parsed cylinder-group block.
type cgBlock struct {
	magic   uint32
	fmapoff uint32
	nfrag   uint32
	raw     []byte
}

// cgBlockFromBytes parses one cylinder-group block and validates its magic.
func cgBlockFromBytes(b []byte) (*cgBlock, error) {
	if len(b) < cgBlockHeaderSize {
		return nil, fmt.Errorf("cylinder group block buffer too short: got %d, need %d", len(b), cgBlockHeaderSize)
	}
	magic := binary.LittleEndian.Uint32(b[0:4])
	if magic != CGMAGIC {
		return nil, fmt.Errorf("%w: bad cylinder group magic %#x, want %#x", ErrBadImage, magic, CGMAGIC)
	}
	return &cgBlock{
		magic:   magic,
		fmapoff: binary.LittleEndian.Uint32(b[4:8]),
		nfrag:   binary.LittleEndian.Uint32(b[8:12]),
		raw:     b,
	}, nil
}

// fragMap returns the fragment-allocation bitmap bytes within the block. A
// set bit means the corresponding fragment is free.
func (cg *cgBlock) fragMap() ([]byte, error) {
	if int(cg.fmapoff) > len(cg.raw) {
		return nil, fmt.Errorf("cylinder group fragment map offset %d is outside %d-byte block", cg.fmapoff, len(cg.raw))
	}
	return cg.raw[cg.fmapoff:], nil
}

// validateStrict applies the strict-at-mount cylinder-group check: any
// cylinder group whose fragment count is not a multiple of fragsPerBlock,
// and which is not the last cylinder group, is an error.
func validateStrict(cg *cgBlock, index int, ncg int, fragsPerBlock uint32) error {
	if cg.nfrag%fragsPerBlock != 0 && index != ncg-1 {
		return fmt.Errorf("%w: fractional number of blocks in non-last cylinder group %d (nfrag=%d)", ErrBadImage, index, cg.nfrag)
	}
	return nil
}
