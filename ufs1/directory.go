package ufs1

import (
	"bytes"
	"encoding/binary"

	"github.com/ffsnfs/ffsnfs/backend"
	"github.com/ffsnfs/ffsnfs/nfs3"
	"github.com/ffsnfs/ffsnfs/util/counter"
)

// dirEntryHeaderSize is the fixed part of one on-disk directory record:
// fileid(4) + reclen(2) + namlen(2), followed by namlen bytes of name
// (NUL-padded to the end of reclen).
const dirEntryHeaderSize = 8

// dirEntry is one parsed on-disk directory record.
type dirEntry struct {
	fileID uint32
	reclen uint16
	namlen uint16
	name   string
}

// parseDirBlock walks one directory block's records starting at byte
// offset start, calling visit for each well-formed record. A malformed
// record (reclen too small to hold its header plus namlen, or a record
// that would run past the end of the block) stops the walk for this
// block only; it does not fail the directory operation as a whole.
func parseDirBlock(block []byte, start int, visit func(dirEntry, int) bool) {
	off := start
	for off+dirEntryHeaderSize <= len(block) {
		fileID := binary.LittleEndian.Uint32(block[off:])
		reclen := binary.LittleEndian.Uint16(block[off+4:])
		namlen := binary.LittleEndian.Uint16(block[off+6:])

		if reclen < dirEntryHeaderSize+namlen || off+int(reclen) > len(block) {
			return
		}
		nameStart := off + dirEntryHeaderSize
		nameEnd := nameStart + int(namlen)
		if nameEnd > len(block) {
			return
		}

		if fileID != 0 {
			entry := dirEntry{
				fileID: fileID,
				reclen: reclen,
				namlen: namlen,
				name:   string(block[nameStart:nameEnd]),
			}
			if !visit(entry, off) {
				return
			}
		}

		if reclen == 0 {
			return
		}
		off += int(reclen)
	}
}

// walkDirectory reads each logical block of a directory inode in turn and
// invokes parseDirBlock on it, stopping early once visit returns false for
// some record or once every block has been read. startBlock and startOff
// let readdir resume mid-directory from a prior cookie.
func walkDirectory(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, in *inode, cnt counter.Counter, startBlock uint64, startOff int, visit func(dirEntry, uint64, int) bool) error {
	nblocks := blocksForSize(in.size, sb.blockSize)
	for lbn := startBlock; lbn < nblocks; lbn++ {
		bno, err := fileBlock(storage, sb, in, lbn)
		if err != nil {
			return err
		}
		var block []byte
		if bno != 0 {
			block, _, err = readBlock(storage, sb, cgTable, uint64(bno), cnt)
			if err != nil {
				return err
			}
		}
		if block == nil {
			// sparse hole within a directory: treat as an empty block.
			block = make([]byte, sb.blockSize)
		}

		from := 0
		if lbn == startBlock {
			from = startOff
		}
		keepGoing := true
		parseDirBlock(block, from, func(e dirEntry, off int) bool {
			keepGoing = visit(e, lbn, off)
			return keepGoing
		})
		if !keepGoing {
			return nil
		}
	}
	return nil
}

// lookupEntry resolves name within directory inode dir to an nfs3.Handle.
func lookupEntry(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, dir *inode, cnt counter.Counter, name string) (nfs3.Handle, nfs3.Status) {
	var found *dirEntry
	err := walkDirectory(storage, sb, cgTable, dir, cnt, 0, 0, func(e dirEntry, _ uint64, _ int) bool {
		if e.name == name {
			found = &e
			return false
		}
		return true
	})
	if err != nil {
		return nfs3.Handle{}, nfs3.ErrIO
	}
	if found == nil {
		return nfs3.Handle{}, nfs3.ErrNoEnt
	}
	return nfs3.MakeHandle(found.fileID), nfs3.Ok
}

// readdirCookie encodes resume position as (logical block index, byte
// offset within that block), matching the original's scheme of using the
// directory offset itself as the opaque cookie. A cookie at or past the
// directory's size yields an empty, non-eof result, preserving the
// original's corresponding quirk (see DESIGN.md, "readdir empty-at-EOF").
func readdirCookie(blockSize uint32, lbn uint64, off int) uint64 {
	return lbn*uint64(blockSize) + uint64(off)
}

func decodeCookie(blockSize uint32, cookie uint64) (lbn uint64, off int) {
	return cookie / uint64(blockSize), int(cookie % uint64(blockSize))
}

// readdir lists directory entries starting at cookie, packing as many as
// fit into packer before it reports nfs3.ErrNoRoom.
func readdir(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, dir *inode, cnt counter.Counter, cookie uint64, packer nfs3.Packer) (eof bool, status nfs3.Status) {
	if cookie >= dir.size {
		return false, nfs3.Ok
	}

	startBlock, startOff := decodeCookie(sb.blockSize, cookie)
	eof = true
	err := walkDirectory(storage, sb, cgTable, dir, cnt, startBlock, startOff, func(e dirEntry, lbn uint64, off int) bool {
		next := readdirCookie(sb.blockSize, lbn, off+int(e.reclen))
		perr := packer.Pack(nfs3.Entry{FileID: e.fileID, Name: e.name, Cookie: next})
		if perr != nil {
			eof = false
			return false
		}
		return true
	})
	if err != nil {
		return false, nfs3.ErrIO
	}
	return eof, nfs3.Ok
}

// readSymlink reads a symlink's target out of its inode. A fast symlink
// (nblock == 0) stores its target text directly in the db/ib byte region
// rather than through a block pointer, since a short target never needed
// an allocated block in the first place; any other symlink stores its
// target as ordinary file data in logical block 0, and a target read that
// way which contains a NUL byte is rejected with nfs3.ErrIO.
func readSymlink(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, link *inode, cnt counter.Counter) (string, nfs3.Status) {
	if link.nblock == 0 {
		raw := make([]byte, 0, 4*NDADDR+4*NIADDR)
		for _, v := range link.db {
			raw = binary.LittleEndian.AppendUint32(raw, v)
		}
		for _, v := range link.ib {
			raw = binary.LittleEndian.AppendUint32(raw, v)
		}
		if link.size > uint64(len(raw)) {
			return "", nfs3.ErrIO
		}
		return string(raw[:link.size]), nfs3.Ok
	}

	bno, err := fileBlock(storage, sb, link, 0)
	if err != nil {
		return "", nfs3.ErrIO
	}
	var block []byte
	if bno != 0 {
		block, _, err = readBlock(storage, sb, cgTable, uint64(bno), cnt)
		if err != nil {
			return "", nfs3.ErrIO
		}
	}
	if block == nil {
		block = make([]byte, sb.blockSize)
	}
	if link.size > uint64(len(block)) {
		return "", nfs3.ErrIO
	}
	if bytes.IndexByte(block[:link.size], 0) >= 0 {
		return "", nfs3.ErrIO
	}
	return string(block[:link.size]), nfs3.Ok
}

// readFileData reads up to count bytes of inode in starting at byte
// offset, clamping to the file's size (and returning fewer bytes than
// requested once size is reached rather than erroring) and, per the
// single-block-per-call contract, clamping count so the read never crosses
// a block boundary: if offset/blockSize != (offset+count-1)/blockSize,
// count is reduced to blockSize - offset%blockSize. A caller that wants the
// rest of the file issues another call at the next offset.
func readFileData(storage backend.Storage, sb *superblock, cgTable []cgDescriptor, in *inode, cnt counter.Counter, offset uint64, count uint64) ([]byte, nfs3.Status) {
	if offset >= in.size {
		return nil, nfs3.Ok
	}
	if offset+count > in.size {
		count = in.size - offset
	}
	if count == 0 {
		return nil, nfs3.Ok
	}

	blockSize := uint64(sb.blockSize)
	if offset/blockSize != (offset+count-1)/blockSize {
		count = blockSize - offset%blockSize
	}

	lbn := offset / blockSize
	withinBlock := offset % blockSize

	bno, err := fileBlock(storage, sb, in, lbn)
	if err != nil {
		return nil, nfs3.ErrIO
	}

	// the last logical block of a file may be a partial fragment rather
	// than a full block.
	isLastBlock := lbn == blocksForSize(in.size, sb.blockSize)-1
	var blockLen uint32 = sb.blockSize
	if isLastBlock {
		tail := in.size % blockSize
		if tail != 0 {
			blockLen = uint32(tail)
		}
	}

	var block []byte
	switch {
	case bno == 0:
		block = make([]byte, blockLen)
	case isLastBlock && blockLen < sb.blockSize:
		// a block number addresses a whole block; converting to a
		// fragment number means multiplying by fragsPerBlock, since
		// fragments are the finer-grained allocation unit.
		fragBno := uint64(bno) * uint64(sb.fragsPerBlock)
		block, err = readData(storage, sb, fragBno, blockLen)
		if err != nil {
			return nil, nfs3.ErrIO
		}
	default:
		block, _, err = readBlock(storage, sb, cgTable, uint64(bno), cnt)
		if err != nil {
			return nil, nfs3.ErrIO
		}
		if block == nil {
			block = make([]byte, blockLen)
		}
	}

	if withinBlock > uint64(len(block)) {
		return nil, nfs3.ErrIO
	}
	take := uint64(len(block)) - withinBlock
	if take > count {
		take = count
	}
	out := make([]byte, take)
	copy(out, block[withinBlock:withinBlock+take])
	return out, nfs3.Ok
}
