package ufs1

import "github.com/ffsnfs/ffsnfs/nfs3"

// inodeToAttr maps a parsed dinode to the protocol-agnostic nfs3.FileAttr,
// including the (rdev>>8)&0xFF / rdev&0xFFFF00FF major/minor split. The
// minor formula is preserved verbatim from the historical FFS reader this
// decoding is grounded on; see DESIGN.md, Open Question: "minor device
// decode formula".
func inodeToAttr(in *inode, fsid uint64) (nfs3.FileAttr, nfs3.Status) {
	ft, ok := fileTypeFromMode(in.mode)
	if !ok {
		return nfs3.FileAttr{}, nfs3.ErrBadHandle
	}

	attr := nfs3.FileAttr{
		Type:  ft,
		Mode:  in.perm(),
		NLink: uint32(in.nlink),
		UID:   uint32(in.uid),
		GID:   uint32(in.gid),
		Size:  in.size,
		// Used is the inode's actual allocated-block count, in
		// BytesPerSector units, accounting correctly for sparse files
		// and for a tail fragment smaller than a full block.
		Used:   uint64(in.nblock) * BytesPerSector,
		FSID:   fsid,
		FileID: in.number,
		Atime:  nfs3.Timespec{Sec: int64(in.atime), Nsec: int64(in.atimeNsec)},
		Mtime:  nfs3.Timespec{Sec: int64(in.mtime), Nsec: int64(in.mtimeNsec)},
		Ctime:  nfs3.Timespec{Sec: int64(in.ctime), Nsec: int64(in.ctimeNsec)},
	}
	if ft == nfs3.FileChar || ft == nfs3.FileBlock {
		attr.Major = (in.rdev >> 8) & 0xFF
		attr.Minor = in.rdev & 0xFFFF00FF
	}
	return attr, nfs3.Ok
}

// fileTypeFromMode maps the dinode IFMT bits to an nfs3.FileType. IFWHT
// (whiteout) and any unrecognized type are reported as not-ok, matching
// the original's treatment of those entries as unrepresentable.
func fileTypeFromMode(mode uint16) (nfs3.FileType, bool) {
	switch mode & modeIFMT {
	case modeIFIFO:
		return nfs3.FileFIFO, true
	case modeIFCHR:
		return nfs3.FileChar, true
	case modeIFDIR:
		return nfs3.FileDir, true
	case modeIFBLK:
		return nfs3.FileBlock, true
	case modeIFREG:
		return nfs3.FileReg, true
	case modeIFLNK:
		return nfs3.FileSymlink, true
	case modeIFSOCK:
		return nfs3.FileSocket, true
	default:
		return 0, false
	}
}

// checkAccess computes the subset of requested access bits the caller
// holds, applying the owner/group/other permission triad in that order
// with no root special-case: the first matching triad governs, even if a
// later, more permissive triad would have granted more. LOOKUP and EXECUTE
// both ride the same exec permission bit, but are mutually exclusive by
// file type: LOOKUP only applies to directories, EXECUTE only to
// non-directories.
func checkAccess(in *inode, auth nfs3.AuthContext, requested uint32) uint32 {
	var permBits uint16
	switch {
	case auth.UID == uint32(in.uid):
		permBits = (in.perm() >> 6) & 0x7
	case auth.InGroup(uint32(in.gid)):
		permBits = (in.perm() >> 3) & 0x7
	default:
		permBits = in.perm() & 0x7
	}
	isDir := in.fileType() == modeIFDIR

	var granted uint32
	if requested&nfs3.AccessRead != 0 && permBits&nfs3.PermRead != 0 {
		granted |= nfs3.AccessRead
	}
	if requested&nfs3.AccessLookup != 0 && isDir && permBits&nfs3.PermExec != 0 {
		granted |= nfs3.AccessLookup
	}
	if requested&nfs3.AccessExecute != 0 && !isDir && permBits&nfs3.PermExec != 0 {
		granted |= nfs3.AccessExecute
	}
	return granted
}
