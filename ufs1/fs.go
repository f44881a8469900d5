package ufs1

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ffsnfs/ffsnfs/backend"
	"github.com/ffsnfs/ffsnfs/nfs3"
	"github.com/ffsnfs/ffsnfs/util/counter"
)

// Options configures a Mount.
type Options struct {
	// Validation selects cylinder-group validation at mount time. Zero
	// value is ValidationLazy.
	Validation ValidationMode
	// Logger receives non-fatal warnings: the core emits one whenever an
	// inode cannot be loaded. Malformed directory records and cylinder-group
	// magic failures are not logged. Nil means NoopLogger.
	Logger Logger
	// HoleCounter is incremented once per sparse-hole block encountered
	// during a read. Nil disables counting.
	HoleCounter counter.Counter
}

// FileSystem is a mounted, read-only view of one FFS/UFS1 image. All of
// its fields are set once by Mount and never mutated afterward, so a
// *FileSystem is safe for concurrent use by multiple callers.
type FileSystem struct {
	storage backend.Storage
	sb      *superblock
	cgTable []cgDescriptor

	logger  Logger
	holes   counter.Counter
	session uuid.UUID
	fsid    uint64
}

// Mount reads and validates the superblock (and, in ValidationStrict
// mode, every cylinder-group block) from storage and derives the
// cylinder-group table, returning a ready-to-use FileSystem.
func Mount(storage backend.Storage, opts Options) (*FileSystem, error) {
	buf := make([]byte, SBSIZE)
	if err := readRaw(storage, SBOFF, buf); err != nil {
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	sb, err := superblockFromBytes(buf)
	if err != nil {
		return nil, err
	}
	cgTable := buildCGTable(sb)

	logger := opts.Logger
	if logger == nil {
		logger = NoopLogger{}
	}

	if opts.Validation == ValidationStrict {
		for i := range cgTable {
			cg, err := readCGBlock(storage, sb, cgTable, i)
			if err != nil {
				return nil, fmt.Errorf("validating cylinder group %d: %w", i, err)
			}
			if err := validateStrict(cg, i, len(cgTable), sb.fragsPerBlock); err != nil {
				return nil, err
			}
		}
	}

	session := uuid.New()
	fs := &FileSystem{
		storage: storage,
		sb:      sb,
		cgTable: cgTable,
		logger:  logger,
		holes:   opts.HoleCounter,
		session: session,
		fsid:    sessionFSID(session),
	}
	return fs, nil
}

// sessionFSID derives a stable-for-the-mount fsid from the low 8 bytes of
// the per-mount session id, giving every file attribute returned by this
// mount a consistent nfs3.FileAttr.FSID without reading one off disk.
func sessionFSID(session uuid.UUID) uint64 {
	var v uint64
	for _, b := range session[8:16] {
		v = v<<8 | uint64(b)
	}
	return v
}

// ID returns the per-mount session identifier, for logging and the
// registry.
func (fs *FileSystem) ID() uuid.UUID { return fs.session }

// DumpBlock reads block number bno's raw bytes, bypassing the
// free-fragment check that applies to normal file reads. It exists for
// diagnostics (cmd/ffsnfsd's dump subcommand) and is not part of the NFS3
// operation surface.
func (fs *FileSystem) DumpBlock(bno uint64) ([]byte, error) {
	if bno >= fs.sb.nblock {
		return nil, fmt.Errorf("%w: block number %d is outside the %d-block filesystem", ErrBadImage, bno, fs.sb.nblock)
	}
	buf := make([]byte, fs.sb.blockSize)
	if err := readRaw(fs.storage, int64(bno)*int64(fs.sb.blockSize), buf); err != nil {
		return nil, fmt.Errorf("reading block %d: %w", bno, err)
	}
	return buf, nil
}

func (fs *FileSystem) loadInode(handle nfs3.Handle) (*inode, nfs3.Status) {
	in, err := loadInode(fs.storage, fs.sb, fs.cgTable, handle.Inode())
	if err != nil {
		fs.logger.Warn("failed to load inode", "session", fs.session.String(), "inode", handle.Inode(), "error", err)
		return nil, nfs3.ErrBadHandle
	}
	return in, nfs3.Ok
}

// Root returns the handle of the filesystem root, always inode 2.
func (fs *FileSystem) Root() nfs3.Handle {
	return nfs3.MakeHandle(nfs3.RootInode)
}

// GetAttr returns the attributes of handle.
func (fs *FileSystem) GetAttr(handle nfs3.Handle) (nfs3.FileAttr, nfs3.Status) {
	in, status := fs.loadInode(handle)
	if status != nfs3.Ok {
		return nfs3.FileAttr{}, status
	}
	return inodeToAttr(in, fs.fsid)
}

// Access reports which of the requested access bits auth holds against
// handle.
func (fs *FileSystem) Access(handle nfs3.Handle, auth nfs3.AuthContext, requested uint32) (uint32, nfs3.Status) {
	in, status := fs.loadInode(handle)
	if status != nfs3.Ok {
		return 0, status
	}
	return checkAccess(in, auth, requested), nfs3.Ok
}

// Lookup resolves name within directory handle dirHandle.
func (fs *FileSystem) Lookup(dirHandle nfs3.Handle, name string) (nfs3.Handle, nfs3.Status) {
	dir, status := fs.loadInode(dirHandle)
	if status != nfs3.Ok {
		return nfs3.Handle{}, status
	}
	if dir.fileType() != modeIFDIR {
		return nfs3.Handle{}, nfs3.ErrNotDir
	}
	return lookupEntry(fs.storage, fs.sb, fs.cgTable, dir, fs.holes, name)
}

// ReadDir lists entries of directory handle dirHandle starting at cookie,
// packing as many as packer accepts.
func (fs *FileSystem) ReadDir(dirHandle nfs3.Handle, cookie uint64, packer nfs3.Packer) (bool, nfs3.Status) {
	dir, status := fs.loadInode(dirHandle)
	if status != nfs3.Ok {
		return false, status
	}
	if dir.fileType() != modeIFDIR {
		return false, nfs3.ErrNotDir
	}
	return readdir(fs.storage, fs.sb, fs.cgTable, dir, fs.holes, cookie, packer)
}

// ReadFile reads up to count bytes of handle starting at offset.
func (fs *FileSystem) ReadFile(handle nfs3.Handle, offset uint64, count uint64) ([]byte, nfs3.Status) {
	in, status := fs.loadInode(handle)
	if status != nfs3.Ok {
		return nil, status
	}
	if in.fileType() != modeIFREG {
		return nil, nfs3.ErrNotDir
	}
	return readFileData(fs.storage, fs.sb, fs.cgTable, in, fs.holes, offset, count)
}

// ReadLink reads the target of symlink handle.
func (fs *FileSystem) ReadLink(handle nfs3.Handle) (string, nfs3.Status) {
	in, status := fs.loadInode(handle)
	if status != nfs3.Ok {
		return "", status
	}
	if in.fileType() != modeIFLNK {
		return "", nfs3.ErrNotDir
	}
	return readSymlink(fs.storage, fs.sb, fs.cgTable, in, fs.holes)
}
