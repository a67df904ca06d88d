package core

import "errors"

// MoveFlagDirToggle marks a move that flips the stepper's direction line
// before it runs.
const MoveFlagDirToggle = 1 << 0

// Move is a single queued step burst: a fixed interval between steps, an
// optional per-step acceleration term, and a step count.
type Move struct {
	Interval uint32
	Add      int16
	Count    uint16
	Flags    uint8
	next     *Move
}

func (m *Move) DirToggle() bool { return m.Flags&MoveFlagDirToggle != 0 }

// MovePool is a process-wide fixed-size free list of Move nodes. Klipper's
// MCU code allocates moves from a single pool sized once at startup
// (move_request_size); exhausting it is fatal, not a place to grow
// dynamically, since a firmware build has a known worst-case queue depth.
type MovePool struct {
	free *Move
	size int
}

// NewMovePool preallocates n Move nodes.
func NewMovePool(n int) *MovePool {
	p := &MovePool{size: n}
	for i := 0; i < n; i++ {
		p.free = &Move{next: p.free}
	}
	return p
}

// Alloc removes a node from the free list. Returns an error if the pool is
// exhausted.
func (p *MovePool) Alloc() (*Move, error) {
	if p.free == nil {
		return nil, errors.New("move pool exhausted")
	}
	m := p.free
	p.free = m.next
	*m = Move{}
	return m, nil
}

// Free returns a node to the pool.
func (p *MovePool) Free(m *Move) {
	m.next = p.free
	p.free = m
}

// DefaultMovePoolSize mirrors Klipper's typical per-MCU move queue depth
// (16 steppers, enough headroom for acceleration bursts on each).
const DefaultMovePoolSize = 512

var movePool = NewMovePool(DefaultMovePoolSize)

// SetMovePoolSize replaces the global move pool with one of the given size.
// Intended for target bring-up and tests that want to exercise pool
// exhaustion deterministically.
func SetMovePoolSize(n int) {
	movePool = NewMovePool(n)
}
