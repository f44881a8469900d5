package ufs1

import (
	"encoding/binary"
	"fmt"

	"github.com/ffsnfs/ffsnfs/backend"
)

// inode field byte offsets within the fixed inodeSize-byte dinode record.
// This implementation commits to the classical UFS1 dinode layout
// (DESIGN.md, Open Question: "on-disk byte layout").
const (
	inoOffMode    = 0
	inoOffNlink   = 2
	inoOffUID     = 4
	inoOffGID     = 6
	inoOffSize    = 8  // 8 bytes (uint64)
	inoOffAtime   = 16
	inoOffAtimeNS = 20
	inoOffMtime   = 24
	inoOffMtimeNS = 28
	inoOffCtime   = 32
	inoOffCtimeNS = 36
	inoOffDB      = 40                      // NDADDR * 4 bytes
	inoOffIB      = inoOffDB + 4*NDADDR     // NIADDR * 4 bytes
	inoOffRdev    = inoOffDB                // major/minor for device nodes, aliases db[0]
	inoOffNblock  = inoOffIB + 4*NIADDR + 4 // allocated disk block count, in BytesPerSector units
)

// inode is the in-memory view of one parsed on-disk dinode.
type inode struct {
	number uint32

	mode  uint16
	nlink uint16
	uid   uint16
	gid   uint16
	size  uint64

	atime, atimeNsec int32
	mtime, mtimeNsec int32
	ctime, ctimeNsec int32

	db [NDADDR]uint32
	ib [NIADDR]uint32

	rdev   uint32
	nblock uint32
}

// inodesPerBlock and the byte offset of inode inum within the inode table
// are computed from the superblock.
func inodeLocation(sb *superblock, cgTable []cgDescriptor, inum uint32) (blockNo uint64, byteOff int64, err error) {
	if inum == 0 {
		return 0, 0, fmt.Errorf("%w: inode 0 is reserved", ErrBadImage)
	}
	gi := int(inum / sb.inosPerGroup)
	if gi >= len(cgTable) {
		return 0, 0, fmt.Errorf("%w: inode %d is outside the %d cylinder groups", ErrBadImage, inum, len(cgTable))
	}
	indexInGroup := inum % sb.inosPerGroup
	blockWithinGroup := uint64(indexInGroup) / uint64(sb.inosPerBlock)
	indexWithinBlock := uint64(indexInGroup) % uint64(sb.inosPerBlock)

	blockNo = cgTable[gi].inodeTableBlockNo + blockWithinGroup
	byteOff = int64(blockNo)*int64(sb.blockSize) + int64(indexWithinBlock)*int64(inodeSize)
	return blockNo, byteOff, nil
}

// loadInode reads and parses inode number inum directly from the backend,
// bypassing readBlock's free-fragment check: the inode table is never a
// sparse hole.
func loadInode(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, inum uint32) (*inode, error) {
	_, byteOff, err := inodeLocation(sb, cgTable, inum)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, inodeSize)
	if err := readRaw(storage, byteOff, buf); err != nil {
		return nil, fmt.Errorf("reading inode %d: %w", inum, err)
	}
	return inodeFromBytes(inum, buf)
}

func inodeFromBytes(inum uint32, b []byte) (*inode, error) {
	if len(b) < inodeSize {
		return nil, fmt.Errorf("inode buffer too short: got %d, need %d", len(b), inodeSize)
	}
	le := binary.LittleEndian
	in := &inode{
		number:    inum,
		mode:      le.Uint16(b[inoOffMode:]),
		nlink:     le.Uint16(b[inoOffNlink:]),
		uid:       le.Uint16(b[inoOffUID:]),
		gid:       le.Uint16(b[inoOffGID:]),
		size:      le.Uint64(b[inoOffSize:]),
		atime:     int32(le.Uint32(b[inoOffAtime:])),
		atimeNsec: int32(le.Uint32(b[inoOffAtimeNS:])),
		mtime:     int32(le.Uint32(b[inoOffMtime:])),
		mtimeNsec: int32(le.Uint32(b[inoOffMtimeNS:])),
		ctime:     int32(le.Uint32(b[inoOffCtime:])),
		ctimeNsec: int32(le.Uint32(b[inoOffCtimeNS:])),
		rdev:      le.Uint32(b[inoOffRdev:]),
		nblock:    le.Uint32(b[inoOffNblock:]),
	}
	for i := 0; i < NDADDR; i++ {
		in.db[i] = le.Uint32(b[inoOffDB+4*i:])
	}
	for i := 0; i < NIADDR; i++ {
		in.ib[i] = le.Uint32(b[inoOffIB+4*i:])
	}
	return in, nil
}

func (in *inode) fileType() uint16 {
	return in.mode & modeIFMT
}

func (in *inode) perm() uint16 {
	return in.mode & modePermBit
}

// blocksForSize returns the number of logical blockSize-sized blocks that
// span in.size bytes, including a partial trailing block.
func blocksForSize(size uint64, blockSize uint32) uint64 {
	if size == 0 {
		return 0
	}
	return (size + uint64(blockSize) - 1) / uint64(blockSize)
}

// fileBlock resolves logical block index lbn of this inode to a physical
// block number, following direct pointers and (for lbn >= NDADDR) a single
// level of indirection through one of the NIADDR separate ib slots: each
// slot addresses its own pointersPerBlock-sized range of logical blocks, so
// lbn >= NDADDR+NIADDR*pointersPerBlock is the only case requiring double or
// triple indirection, which is out of scope and reported as an error rather
// than silently truncating the file.
func fileBlock(storage backend.Storage, sb *superblock, in *inode, lbn uint64) (uint32, error) {
	if lbn < NDADDR {
		return in.db[lbn], nil
	}

	indirLbn := lbn - NDADDR
	pointersPerBlock := uint64(sb.blockSize) / 4
	ibIndex := indirLbn / pointersPerBlock
	within := indirLbn % pointersPerBlock
	if ibIndex >= NIADDR {
		return 0, fmt.Errorf("%w: logical block %d requires double or triple indirection, which is out of scope", ErrBadImage, lbn)
	}
	ibno := in.ib[ibIndex]
	if ibno == 0 {
		// the whole indirect block is unallocated: every block it would
		// have pointed to is a hole.
		return 0, nil
	}

	buf := make([]byte, sb.blockSize)
	off := int64(ibno) * int64(sb.blockSize)
	if err := readRaw(storage, off, buf); err != nil {
		return 0, fmt.Errorf("reading indirect block for inode %d: %w", in.number, err)
	}
	return binary.LittleEndian.Uint32(buf[within*4:]), nil
}
