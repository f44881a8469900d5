package ufs1_test

import (
	"encoding/binary"
	"testing"

	"github.com/ffsnfs/ffsnfs/nfs3"
)

// buildRegressionTestImage lays out a root directory containing a
// two-direct-block regular file, an executable regular file, and a fast
// symlink, exercising behavior buildTestImage in fs_test.go does not.
func buildRegressionTestImage(t *testing.T) []byte {
	t.Helper()

	img := make([]byte, testSBOffset+8192)
	putBlock := func(bno int, data []byte) {
		off := bno * testBlockSize
		copy(img[off:off+testBlockSize], data)
	}

	cg := make([]byte, testBlockSize)
	binary.LittleEndian.PutUint32(cg[0:], 0x090255) // CGMAGIC
	binary.LittleEndian.PutUint32(cg[4:], 12)        // fmapoff
	binary.LittleEndian.PutUint32(cg[8:], 32)        // nfrag
	copy(cg[12:], []byte{0x80, 0xFF, 0xFF, 0xFF})    // blocks 0-6 allocated, rest free
	putBlock(0, cg)

	inodeTable := make([]byte, 2*testBlockSize)
	setU16 := func(off int, v uint16) { binary.LittleEndian.PutUint16(inodeTable[off:], v) }
	setU64 := func(off int, v uint64) { binary.LittleEndian.PutUint64(inodeTable[off:], v) }
	setU32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(inodeTable[off:], v) }

	// inode 2: root directory
	setU16(2*128+0, 0040755)
	setU16(2*128+2, 2)
	setU64(2*128+8, uint64(testBlockSize))
	setU32(2*128+40, 3) // db[0] -> block 3 (directory data)

	// inode 3: "big", a regular file spanning two direct blocks
	setU16(3*128+0, 0100644)
	setU16(3*128+2, 1)
	setU64(3*128+8, uint64(2*testBlockSize))
	setU32(3*128+40, 4) // db[0] -> block 4
	setU32(3*128+44, 5) // db[1] -> block 5

	// inode 4: "prog", an executable regular file
	setU16(4*128+0, 0100755)
	setU16(4*128+2, 1)
	setU64(4*128+8, 1)
	setU32(4*128+40, 6) // db[0] -> block 6

	// inode 5: "link", a fast symlink (nblock == 0): target "abcde" is
	// stored inline in the inode's db/ib byte region, not a block pointer.
	setU16(5*128+0, 0120644)
	setU16(5*128+2, 1)
	setU64(5*128+8, 5)
	copy(inodeTable[5*128+40:], "abcde")

	putBlock(1, inodeTable[0:testBlockSize])
	putBlock(2, inodeTable[testBlockSize:])

	dir := make([]byte, testBlockSize)
	off := 0
	putDirEntry := func(fileID uint32, name string) {
		reclen := uint16(8 + len(name))
		binary.LittleEndian.PutUint32(dir[off:], fileID)
		binary.LittleEndian.PutUint16(dir[off+4:], reclen)
		binary.LittleEndian.PutUint16(dir[off+6:], uint16(len(name)))
		copy(dir[off+8:], name)
		off += int(reclen)
	}
	putDirEntry(2, ".")
	putDirEntry(3, "big")
	putDirEntry(4, "prog")
	putDirEntry(5, "link")
	putBlock(3, dir)

	big := make([]byte, 2*testBlockSize)
	for i := range big {
		big[i] = 0xAB
	}
	putBlock(4, big[0:testBlockSize])
	putBlock(5, big[testBlockSize:])
	putBlock(6, []byte{'x'})

	sb := make([]byte, 8192)
	binary.LittleEndian.PutUint32(sb[0:], 0x011954) // FSMAGIC
	f := sb[4:]
	putf := func(o int, v uint32) { binary.LittleEndian.PutUint32(f[o:], v) }
	putf(0, testBlockSize) // blockSize
	putf(4, testBlockSize) // fragSize
	putf(8, 32)            // fragsPerGroup
	putf(12, 8)             // inosPerBlock
	putf(16, 16)            // inosPerGroup
	putf(20, 32)            // nfrag
	putf(24, 0)             // ndfrag
	putf(28, 1)             // ncg
	putf(32, 0)             // cgOffset
	putf(36, 0)             // cgMask
	putf(40, 1)             // cylsPerGroup
	putf(44, 64)            // secsPerCyl
	putf(48, 0)             // cfragno
	putf(52, 1)             // ifragno
	putf(56, 3)             // dfragno
	copy(img[testSBOffset:], sb)

	return img
}

func TestReadFileClampsToSingleBlock(t *testing.T) {
	fsys := mustMount(t, buildRegressionTestImage(t))
	root := fsys.Root()
	handle, status := fsys.Lookup(root, "big")
	if status != nfs3.Ok {
		t.Fatalf("Lookup(big) status = %v", status)
	}

	data, status := fsys.ReadFile(handle, testBlockSize-10, 20)
	if status != nfs3.Ok {
		t.Fatalf("ReadFile() status = %v", status)
	}
	if len(data) != 10 {
		t.Fatalf("ReadFile() returned %d bytes, want 10 (clamped to the current block)", len(data))
	}
	for i, b := range data {
		if b != 0xAB {
			t.Fatalf("ReadFile()[%d] = %#x, want 0xAB", i, b)
		}
	}
}

func TestAccessGatesByFileType(t *testing.T) {
	fsys := mustMount(t, buildRegressionTestImage(t))
	root := fsys.Root()
	owner := nfs3.AuthContext{UID: 0, GID: 0}

	progHandle, status := fsys.Lookup(root, "prog")
	if status != nfs3.Ok {
		t.Fatalf("Lookup(prog) status = %v", status)
	}
	granted, status := fsys.Access(progHandle, owner, nfs3.AccessLookup|nfs3.AccessExecute)
	if status != nfs3.Ok {
		t.Fatalf("Access(prog) status = %v", status)
	}
	if granted&nfs3.AccessExecute == 0 {
		t.Error("executable regular file should grant AccessExecute")
	}
	if granted&nfs3.AccessLookup != 0 {
		t.Error("a regular file must never grant AccessLookup, even with exec permission")
	}

	granted, status = fsys.Access(root, owner, nfs3.AccessLookup|nfs3.AccessExecute)
	if status != nfs3.Ok {
		t.Fatalf("Access(root) status = %v", status)
	}
	if granted&nfs3.AccessLookup == 0 {
		t.Error("a directory should grant AccessLookup")
	}
	if granted&nfs3.AccessExecute != 0 {
		t.Error("a directory must never grant AccessExecute")
	}
}

func TestReadLinkFastSymlink(t *testing.T) {
	fsys := mustMount(t, buildRegressionTestImage(t))
	root := fsys.Root()
	handle, status := fsys.Lookup(root, "link")
	if status != nfs3.Ok {
		t.Fatalf("Lookup(link) status = %v", status)
	}
	target, status := fsys.ReadLink(handle)
	if status != nfs3.Ok {
		t.Fatalf("ReadLink() status = %v", status)
	}
	if target != "abcde" {
		t.Errorf("ReadLink() = %q, want %q", target, "abcde")
	}
}
