package nfs3_test

import (
	"errors"
	"testing"

	"github.com/ffsnfs/ffsnfs/nfs3"
)

func TestSlicePackerBudget(t *testing.T) {
	p := nfs3.NewSlicePacker(64)
	var packed int
	for i := 0; i < 100; i++ {
		err := p.Pack(nfs3.Entry{FileID: uint32(i), Name: "entry", Cookie: uint64(i)})
		if err != nil {
			if !errors.Is(err, nfs3.ErrNoRoom) {
				t.Fatalf("Pack() error = %v, want ErrNoRoom", err)
			}
			break
		}
		packed++
	}
	if packed == 0 {
		t.Fatal("expected at least one entry to fit in the budget")
	}
	if len(p.Entries) != packed {
		t.Errorf("len(Entries) = %d, want %d", len(p.Entries), packed)
	}
}
