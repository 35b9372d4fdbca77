package cellpool

import (
	"testing"

	"github.com/Voskan/protocore/internal/valueword"
)

func TestRefillBatchAlignment(t *testing.T) {
	p := NewPool(0)
	head, n := p.RefillBatch(10)
	if n != 10 {
		t.Fatalf("expected 10 cells, got %d", n)
	}
	for c := head; c != nil; c = c.Next {
		addr := Addr(c)
		if addr%CellSize != 0 {
			t.Fatalf("cell not %d-byte aligned: %x", CellSize, addr)
		}
	}
}

func TestRefillGrowsHeap(t *testing.T) {
	p := NewPool(0)
	head, n := p.RefillBatch(CellsPerBlock + 1)
	if n != CellsPerBlock+1 {
		t.Fatalf("expected %d cells, got %d", CellsPerBlock+1, n)
	}
	total, free := p.Stats()
	if total != 2*CellsPerBlock {
		t.Fatalf("expected heap to grow by 2 blocks, total=%d", total)
	}
	if free != 2*CellsPerBlock-int64(n) {
		t.Fatalf("unexpected free count: %d", free)
	}
	_ = head
}

func TestRefillRespectsMax(t *testing.T) {
	p := NewPool(CellsPerBlock)
	_, n := p.RefillBatch(CellsPerBlock + 100)
	if n != CellsPerBlock {
		t.Fatalf("expected capped at %d, got %d", CellsPerBlock, n)
	}
	_, n2 := p.RefillBatch(1)
	if n2 != 0 {
		t.Fatalf("expected 0 cells once heap is exhausted, got %d", n2)
	}
}

func TestRecycleReturnsCellsAndResetsThem(t *testing.T) {
	p := NewPool(0)
	head, n := p.RefillBatch(5)
	for c := head; c != nil; c = c.Next {
		c.Tag = valueword.TagList
		c.SetMark(MarkBlack)
	}
	p.Recycle(head, n)

	_, free := p.Stats()
	if free != CellsPerBlock {
		t.Fatalf("expected all cells back on free-list, free=%d", free)
	}

	head2, _ := p.RefillBatch(5)
	for c := head2; c != nil; c = c.Next {
		if c.Tag != valueword.TagObject || c.Mark() != MarkWhite {
			t.Fatalf("recycled cell was not reset")
		}
	}
}

func TestPayloadAsAndMustFit(t *testing.T) {
	type small struct{ a, b uint64 }
	MustFit[small]() // must not panic

	p := NewPool(0)
	head, _ := p.RefillBatch(1)
	s := PayloadAs[small](head)
	s.a, s.b = 1, 2
	s2 := PayloadAs[small](head)
	if s2.a != 1 || s2.b != 2 {
		t.Fatalf("payload view did not alias cell storage")
	}
}
