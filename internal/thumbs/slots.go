package thumbs

import "sync"

// SlotID identifies one display slot in a result grid. The generation
// guards against stale deliveries: once a slot is freed and its index
// reused, deliveries addressed to the old generation are dropped.
type SlotID struct {
	Index int
	Gen   uint64
}

// SlotTable is an arena of display slots. Consumers allocate a slot per
// visible thumbnail, hand its ID to the load coordinator and free the
// slot when the grid entry goes away.
type SlotTable struct {
	mu   sync.Mutex
	gens []uint64
	live []bool
	free []int
}

func NewSlotTable() *SlotTable {
	return &SlotTable{}
}

func (t *SlotTable) Alloc() SlotID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = len(t.gens)
		t.gens = append(t.gens, 0)
		t.live = append(t.live, false)
	}

	t.gens[idx]++
	t.live[idx] = true
	return SlotID{Index: idx, Gen: t.gens[idx]}
}

// Free releases a slot. Freeing an already stale ID is a no-op.
func (t *SlotTable) Free(id SlotID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.aliveLocked(id) {
		return
	}
	t.live[id.Index] = false
	t.free = append(t.free, id.Index)
}

// FreeAll invalidates every live slot, typically when a new result set
// replaces the grid wholesale.
func (t *SlotTable) FreeAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, live := range t.live {
		if live {
			t.live[i] = false
			t.free = append(t.free, i)
		}
	}
}

func (t *SlotTable) Alive(id SlotID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.aliveLocked(id)
}

func (t *SlotTable) aliveLocked(id SlotID) bool {
	return id.Index >= 0 &&
		id.Index < len(t.gens) &&
		t.live[id.Index] &&
		t.gens[id.Index] == id.Gen
}
