package ufs1

import (
	"fmt"
	"io"

	"github.com/ffsnfs/ffsnfs/backend"
	"github.com/ffsnfs/ffsnfs/util/bitmap"
	"github.com/ffsnfs/ffsnfs/util/counter"
)

// groupForBlock returns the index of the cylinder group containing bno and
// bno's block offset within that group, computed directly as
// bno/blocksPerGroup and bno%blocksPerGroup. The per-group cgOffset/cgMask
// rotation repositions a group's cg/inode/data regions within its
// blocksPerGroup-wide window; it does not change which window a given bno
// falls in, so this is a plain division, not a search.
func groupForBlock(sb *superblock, ncg int, bno uint64) (gi int, blockIndexInGroup uint64, err error) {
	g := bno / sb.blocksPerGroup
	if g >= uint64(ncg) {
		return 0, 0, fmt.Errorf("%w: block %d is outside the %d cylinder groups", ErrBadImage, bno, ncg)
	}
	return int(g), bno % sb.blocksPerGroup, nil
}

// readRaw reads exactly len(buf) bytes at byte offset off from storage,
// treating a short read as an error: every caller here asks for a
// fixed-size structural region (a whole block, a superblock, a cg block),
// never a variable-length tail.
func readRaw(storage backend.Storage, off int64, buf []byte) error {
	n, err := storage.ReadAt(buf, off)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return fmt.Errorf("read at offset %d: %w", off, err)
	}
	if n != len(buf) {
		return fmt.Errorf("short read at offset %d: got %d, want %d", off, n, len(buf))
	}
	return nil
}

// readCGBlock reads and parses the cylinder-group block for group gi.
func readCGBlock(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, gi int) (*cgBlock, error) {
	buf := make([]byte, sb.blockSize)
	off := int64(cgTable[gi].cgBlockNo) * int64(sb.blockSize)
	if err := readRaw(storage, off, buf); err != nil {
		return nil, fmt.Errorf("reading cylinder group %d block: %w", gi, err)
	}
	return cgBlockFromBytes(buf)
}

// readBlock reads one full filesystem block, honoring the fragment
// allocation bitmap: a block whose fragments are all marked free is a
// sparse hole and is reported as absent rather than read, matching the
// original's read_block semantics. In a partially allocated block, the
// fragments marked free are zeroed in the returned buffer.
func readBlock(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, bno uint64, cnt counter.Counter) ([]byte, bool, error) {
	if bno >= sb.nblock {
		return nil, false, fmt.Errorf("%w: block number %d is outside the %d-block filesystem", ErrBadImage, bno, sb.nblock)
	}

	gi, blockIndexInGroup, err := groupForBlock(sb, len(cgTable), bno)
	if err != nil {
		return nil, false, err
	}
	cg, err := readCGBlock(storage, sb, cgTable, gi)
	if err != nil {
		return nil, false, err
	}
	fmap, err := cg.fragMap()
	if err != nil {
		return nil, false, err
	}
	bm := bitmap.FromBytes(fmap)
	field, err := bm.FragField(int(blockIndexInGroup), int(sb.fragsPerBlock))
	if err != nil {
		return nil, false, fmt.Errorf("block %d in cylinder group %d: %w", bno, gi, err)
	}

	allFree := uint8((1 << sb.fragsPerBlock) - 1)
	if field == allFree {
		if cnt != nil {
			cnt.Inc()
		}
		return nil, false, nil
	}

	buf := make([]byte, sb.blockSize)
	off := int64(bno) * int64(sb.blockSize)
	if err := readRaw(storage, off, buf); err != nil {
		return nil, false, fmt.Errorf("reading block %d: %w", bno, err)
	}
	fragSize := int(sb.fragSize)
	for k := 0; k < int(sb.fragsPerBlock); k++ {
		if field&(1<<uint(k)) != 0 {
			for j := k * fragSize; j < (k+1)*fragSize; j++ {
				buf[j] = 0
			}
		}
	}
	return buf, true, nil
}

// readData reads a single data fragment (the tail fragment of a file whose
// size is not block-aligned), bypassing the free-fragment check that
// applies to whole blocks: a file's last fragment is always allocated if
// the file has any bytes in it.
func readData(storage backend.Storage, sb *superblock, fragBno uint64, size uint32) ([]byte, error) {
	if fragBno >= uint64(sb.nfrag) {
		return nil, fmt.Errorf("%w: fragment number %d is outside the %d-fragment filesystem", ErrBadImage, fragBno, sb.nfrag)
	}
	if size > sb.blockSize {
		return nil, fmt.Errorf("%w: fragment read size %d exceeds block size %d", ErrBadImage, size, sb.blockSize)
	}
	buf := make([]byte, size)
	off := int64(fragBno) * int64(sb.fragSize)
	if err := readRaw(storage, off, buf); err != nil {
		return nil, fmt.Errorf("reading fragment %d: %w", fragBno, err)
	}
	return buf, nil
}
