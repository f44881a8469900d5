package ufs1_test

import (
	"bytes"
	"encoding/binary"
	"io/fs"
	"os"
	"testing"

	"github.com/ffsnfs/ffsnfs/backend"
	"github.com/ffsnfs/ffsnfs/nfs3"
	"github.com/ffsnfs/ffsnfs/ufs1"
)

// memStorage adapts a byte slice to backend.Storage for tests; the filesystem core
// never depends on a concrete backend, only the interface.
type memStorage struct {
	*bytes.Reader
}

func newMemStorage(b []byte) *memStorage { return &memStorage{bytes.NewReader(b)} }

func (m *memStorage) Stat() (fs.FileInfo, error) { return nil, backend.ErrNotSuitable }
func (m *memStorage) Close() error               { return nil }
func (m *memStorage) Sys() (*os.File, error)      { return nil, backend.ErrNotSuitable }

const (
	testBlockSize = 1024
	testSBOffset  = 8192
)

// buildTestImage assembles a minimal, hand-laid-out FFS1 image: one
// cylinder group, blockSize == fragSize (fragsPerBlock == 1), a root
// directory (inode 2) containing one regular file "hello" (inode 3).
//
// Block layout: 0 = cylinder group block, 1-2 = inode table (16 inodes),
// 3 = root directory data, 4 = file data.
func buildTestImage(t *testing.T, fileContents string) []byte {
	t.Helper()

	img := make([]byte, testSBOffset+8192)
	putBlock := func(bno int, data []byte) {
		off := bno * testBlockSize
		copy(img[off:off+testBlockSize], data)
	}

	// cylinder group block (block 0)
	cg := make([]byte, testBlockSize)
	binary.LittleEndian.PutUint32(cg[0:], 0x090255) // CGMAGIC
	binary.LittleEndian.PutUint32(cg[4:], 12)        // fmapoff
	binary.LittleEndian.PutUint32(cg[8:], 32)        // nfrag
	copy(cg[12:], []byte{0xE0, 0xFF, 0xFF, 0xFF})     // blocks 0-4 allocated, rest free
	putBlock(0, cg)

	// inode table (blocks 1-2): inode 2 is root dir, inode 3 is the file.
	inodeTable := make([]byte, 2*testBlockSize)
	putInode := func(inum int, mode uint16, nlink uint16, size uint64, db0 uint32) {
		off := inum * 128
		binary.LittleEndian.PutUint16(inodeTable[off:], mode)
		binary.LittleEndian.PutUint16(inodeTable[off+2:], nlink)
		binary.LittleEndian.PutUint64(inodeTable[off+8:], size)
		binary.LittleEndian.PutUint32(inodeTable[off+40:], db0) // db[0]
	}
	putInode(2, 0040755, 2, uint64(22), 3)
	putInode(3, 0100644, 1, uint64(len(fileContents)), 4)
	putBlock(1, inodeTable[0:testBlockSize])
	putBlock(2, inodeTable[testBlockSize:])

	// root directory data (block 3): "." -> inode 2, "hello" -> inode 3.
	dir := make([]byte, testBlockSize)
	putDirEntry := func(off int, fileID uint32, name string) int {
		binary.LittleEndian.PutUint32(dir[off:], fileID)
		reclen := uint16(8 + len(name))
		binary.LittleEndian.PutUint16(dir[off+4:], reclen)
		binary.LittleEndian.PutUint16(dir[off+6:], uint16(len(name)))
		copy(dir[off+8:], name)
		return off + int(reclen)
	}
	next := putDirEntry(0, 2, ".")
	putDirEntry(next, 3, "hello")
	putBlock(3, dir)

	// file data (block 4)
	fileBlock := make([]byte, testBlockSize)
	copy(fileBlock, fileContents)
	putBlock(4, fileBlock)

	// superblock
	sb := make([]byte, 8192)
	binary.LittleEndian.PutUint32(sb[0:], 0x011954) // FSMAGIC
	f := sb[4:]
	putf := func(off int, v uint32) { binary.LittleEndian.PutUint32(f[off:], v) }
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

func mustMount(t *testing.T, img []byte) *ufs1.FileSystem {
	t.Helper()
	fsys, err := ufs1.Mount(newMemStorage(img), ufs1.Options{})
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return fsys
}

func TestMountAndRoot(t *testing.T) {
	fsys := mustMount(t, buildTestImage(t, "hello world\n"))
	root := fsys.Root()
	if root.Inode() != nfs3.RootInode {
		t.Errorf("Root().Inode() = %d, want %d", root.Inode(), nfs3.RootInode)
	}

	attr, status := fsys.GetAttr(root)
	if status != nfs3.Ok {
		t.Fatalf("GetAttr(root) status = %v", status)
	}
	if attr.Type != nfs3.FileDir {
		t.Errorf("root attr.Type = %v, want FileDir", attr.Type)
	}
}

func TestLookupAndReadFile(t *testing.T) {
	contents := "hello world\n"
	fsys := mustMount(t, buildTestImage(t, contents))
	root := fsys.Root()

	handle, status := fsys.Lookup(root, "hello")
	if status != nfs3.Ok {
		t.Fatalf("Lookup(hello) status = %v", status)
	}
	if handle.Inode() != 3 {
		t.Fatalf("Lookup(hello).Inode() = %d, want 3", handle.Inode())
	}

	if _, status := fsys.Lookup(root, "does-not-exist"); status != nfs3.ErrNoEnt {
		t.Errorf("Lookup(missing) status = %v, want ErrNoEnt", status)
	}

	data, status := fsys.ReadFile(handle, 0, 4096)
	if status != nfs3.Ok {
		t.Fatalf("ReadFile() status = %v", status)
	}
	if string(data) != contents {
		t.Errorf("ReadFile() = %q, want %q", data, contents)
	}
}

func TestReadDirListsEntries(t *testing.T) {
	fsys := mustMount(t, buildTestImage(t, "x"))
	root := fsys.Root()

	packer := nfs3.NewSlicePacker(4096)
	eof, status := fsys.ReadDir(root, 0, packer)
	if status != nfs3.Ok {
		t.Fatalf("ReadDir() status = %v", status)
	}
	if !eof {
		t.Error("ReadDir() eof = false, want true")
	}

	names := make(map[string]bool)
	for _, e := range packer.Entries {
		names[e.Name] = true
	}
	if !names["."] || !names["hello"] {
		t.Errorf("ReadDir() entries = %+v, missing expected names", packer.Entries)
	}
}

func TestReadDirCookieAtEOF(t *testing.T) {
	fsys := mustMount(t, buildTestImage(t, "x"))
	root := fsys.Root()

	attr, status := fsys.GetAttr(root)
	if status != nfs3.Ok {
		t.Fatalf("GetAttr() status = %v", status)
	}

	packer := nfs3.NewSlicePacker(4096)
	eof, status := fsys.ReadDir(root, attr.Size, packer)
	if status != nfs3.Ok {
		t.Fatalf("ReadDir(cookie at size) status = %v", status)
	}
	if eof {
		t.Error("ReadDir(cookie at size) eof = true, want false (preserved quirk)")
	}
	if len(packer.Entries) != 0 {
		t.Errorf("ReadDir(cookie at size) entries = %+v, want none", packer.Entries)
	}
}

func TestLookupOnNonDirectory(t *testing.T) {
	fsys := mustMount(t, buildTestImage(t, "x"))
	root := fsys.Root()
	handle, status := fsys.Lookup(root, "hello")
	if status != nfs3.Ok {
		t.Fatalf("Lookup(hello) status = %v", status)
	}
	if _, status := fsys.Lookup(handle, "anything"); status != nfs3.ErrNotDir {
		t.Errorf("Lookup through a file status = %v, want ErrNotDir", status)
	}
}

func TestAccess(t *testing.T) {
	fsys := mustMount(t, buildTestImage(t, "x"))
	root := fsys.Root()
	owner := nfs3.AuthContext{UID: 0, GID: 0}
	granted, status := fsys.Access(root, owner, nfs3.AccessLookup|nfs3.AccessRead|nfs3.AccessExecute)
	if status != nfs3.Ok {
		t.Fatalf("Access() status = %v", status)
	}
	if granted&nfs3.AccessLookup == 0 {
		t.Error("owner should have lookup access on 0755 root directory")
	}

	other := nfs3.AuthContext{UID: 9999, GID: 9999}
	granted, status = fsys.Access(root, other, nfs3.AccessRead)
	if status != nfs3.Ok {
		t.Fatalf("Access() status = %v", status)
	}
	if granted&nfs3.AccessRead == 0 {
		t.Error("other should still have read access on 0755 (world-readable)")
	}
}
