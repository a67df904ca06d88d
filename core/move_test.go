package core

import "testing"

func TestMovePoolAllocFree(t *testing.T) {
	p := NewMovePool(2)

	m1, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	m2, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if m1 == m2 {
		t.Fatal("Alloc returned the same node twice")
	}

	if _, err := p.Alloc(); err == nil {
		t.Fatal("expected pool exhaustion error on third Alloc")
	}

	p.Free(m1)
	if _, err := p.Alloc(); err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
}

func TestMovePoolAllocReturnsZeroedNode(t *testing.T) {
	p := NewMovePool(1)
	m, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	m.Interval = 42
	m.Count = 7
	p.Free(m)

	m2, err := p.Alloc()
	if err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if m2.Interval != 0 || m2.Count != 0 {
		t.Errorf("reused node not zeroed: interval=%d count=%d", m2.Interval, m2.Count)
	}
}
