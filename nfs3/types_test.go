package nfs3_test

import (
	"testing"

	"github.com/ffsnfs/ffsnfs/nfs3"
)

func TestHandleRoundTrip(t *testing.T) {
	for _, inum := range []uint32{0, 1, 2, 0xFFFFFFFF, 123456} {
		h := nfs3.MakeHandle(inum)
		if got := h.Inode(); got != inum {
			t.Errorf("MakeHandle(%d).Inode() = %d, want %d", inum, got, inum)
		}
	}
}

func TestHandleFromBytes(t *testing.T) {
	h, status := nfs3.HandleFromBytes([]byte{0, 0, 0, 7})
	if status != nfs3.Ok {
		t.Fatalf("HandleFromBytes() status = %v, want Ok", status)
	}
	if h.Inode() != 7 {
		t.Errorf("Inode() = %d, want 7", h.Inode())
	}

	if _, status := nfs3.HandleFromBytes([]byte{1, 2, 3}); status != nfs3.ErrBadHandle {
		t.Errorf("HandleFromBytes(short) status = %v, want ErrBadHandle", status)
	}
}

func TestAuthContextInGroup(t *testing.T) {
	auth := nfs3.AuthContext{UID: 1000, GID: 100, Groups: []uint32{100, 200, 300}}
	for _, tt := range []struct {
		gid  uint32
		want bool
	}{
		{100, true},
		{200, true},
		{999, false},
	} {
		if got := auth.InGroup(tt.gid); got != tt.want {
			t.Errorf("InGroup(%d) = %v, want %v", tt.gid, got, tt.want)
		}
	}
}
