// Package nfs3 defines the protocol-agnostic types the filesystem core consumes and
// produces: NFSv3 status codes, the file handle codec, file attributes,
// access bits, the authentication context, and the directory-entry packer
// contract. It carries no filesystem-specific logic; github.com/ffsnfs/ffsnfs/ufs1
// is the one implementation of the operation surface these types describe.
//
// This package does not frame RPC or encode XDR on the wire — that is an
// external collaborator's job.
package nfs3

import (
	"encoding/binary"
	"fmt"
)

// Status is an NFSv3 procedure result status.
type Status int

const (
	// Ok indicates success.
	Ok Status = iota
	// ErrBadHandle indicates a malformed or out-of-range file handle.
	ErrBadHandle
	// ErrNotDir indicates an operation that requires a directory was
	// given a non-directory.
	ErrNotDir
	// ErrNoEnt indicates a name was not found in a directory.
	ErrNoEnt
	// ErrNotOwner indicates a permission check failed (semantically EPERM).
	ErrNotOwner
	// ErrIO indicates a disk read failure or a structural rejection the
	// core chooses to surface as an I/O error (oversized symlink, NUL in
	// symlink target, short read).
	ErrIO
	// ErrNoMem indicates an allocation failure for an output buffer.
	ErrNoMem
)

func (s Status) String() string {
	switch s {
	case Ok:
		return "OK"
	case ErrBadHandle:
		return "ERR_BADHANDLE"
	case ErrNotDir:
		return "ERR_NOTDIR"
	case ErrNoEnt:
		return "ERR_NOENT"
	case ErrNotOwner:
		return "ERR_NOTOWNER"
	case ErrIO:
		return "ERR_IO"
	case ErrNoMem:
		return "ERR_NOMEM"
	default:
		return fmt.Sprintf("ERR_UNKNOWN(%d)", int(s))
	}
}

// FileType is the NFSv3 file type of an inode.
type FileType int

const (
	FileFIFO FileType = iota
	FileChar
	FileDir
	FileBlock
	FileReg
	FileSymlink
	FileSocket
)

// HandleSize is the fixed length of a file handle in this implementation.
const HandleSize = 4

// Handle is an opaque NFS file handle: a 4-byte big-endian encoding of a
// 32-bit inode number. The root directory's handle always decodes to 2.
type Handle [HandleSize]byte

// RootInode is the fixed inode number of the filesystem root.
const RootInode uint32 = 2

// MakeHandle encodes an inode number as a Handle.
func MakeHandle(inum uint32) Handle {
	var h Handle
	binary.BigEndian.PutUint32(h[:], inum)
	return h
}

// Inode decodes the handle back to an inode number.
func (h Handle) Inode() uint32 {
	return binary.BigEndian.Uint32(h[:])
}

// HandleFromBytes validates and decodes a wire-format handle. It returns
// ErrBadHandle if b is not exactly HandleSize bytes long.
func HandleFromBytes(b []byte) (Handle, Status) {
	var h Handle
	if len(b) != HandleSize {
		return h, ErrBadHandle
	}
	copy(h[:], b)
	return h, Ok
}

// Timespec is a POSIX-style (seconds, nanoseconds) timestamp, copied
// as-is from the on-disk inode without interpretation.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// FileAttr is the NFSv3 attribute payload returned by getattr. The access
// operation in ufs1 returns only the granted access bits, not a FileAttr.
type FileAttr struct {
	Type  FileType
	Mode  uint16 // permission bits only, mode&07777
	NLink uint32
	UID   uint32
	GID   uint32
	Size  uint64
	Used  uint64 // nblock * block size
	Major uint32
	Minor uint32
	FSID  uint64
	// FileID is the inode number the handle that produced this
	// attribute set decodes to.
	FileID uint32
	Atime  Timespec
	Mtime  Timespec
	Ctime  Timespec
}

// Access bits, bitwise-ORable, used by both the want and got parameters of
// the access operation.
const (
	AccessRead    uint32 = 1 << 0
	AccessLookup  uint32 = 1 << 1
	AccessExecute uint32 = 1 << 2
)

// Permission bits checked by check_perm, distinct from the NFSv3
// ACCESS bits above: these are POSIX rwx bits shifted into the owner,
// group, or other triad depending on the caller's identity.
const (
	PermRead  = 4
	PermWrite = 2
	PermExec  = 1
)

// AuthContext carries the calling principal's identity for permission
// checks. Root (UID 0) receives no special treatment in this core.
type AuthContext struct {
	UID    uint32
	GID    uint32
	Groups []uint32
}

// InGroup reports whether gid is the caller's primary group or among its
// supplementary groups.
func (a AuthContext) InGroup(gid uint32) bool {
	if a.GID == gid {
		return true
	}
	for _, g := range a.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// Entry is one directory entry produced by readdir, ready to be handed to
// a Packer.
type Entry struct {
	FileID uint32
	Name   string
	// Cookie is the opaque resume token for the entry immediately
	// following this one.
	Cookie uint64
}

// ErrNoRoom is returned by a Packer when an entry does not fit in the
// remaining output space. It is not a core-level error: readdir treats it
// as the terminal condition for the current call, not a failure.
var ErrNoRoom = fmt.Errorf("no room for entry")

// Packer is the external, opaque directory-entry wire packer readdir
// writes through. the filesystem core never formats wire bytes itself; it calls
// Pack once per entry and stops when Pack reports no room.
type Packer interface {
	// Pack appends entry's wire representation to the packer's output.
	// It returns ErrNoRoom if entry does not fit in the remaining space.
	Pack(entry Entry) error
}
