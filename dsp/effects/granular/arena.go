package granular

// arena is a fixed set of grain slots. Live slots are kept in spawn order
// in a ring of indices; free slots sit on a stack.
type arena struct {
	slots []Grain

	ring  []int
	head  int
	count int

	free []int
}

func newArena(size, channels, frames int) *arena {
	a := &arena{
		slots: make([]Grain, size),
		ring:  make([]int, size),
		free:  make([]int, 0, size),
	}
	for i := range a.slots {
		a.slots[i].ensureCapacity(channels, frames)
	}
	a.reset()
	return a
}

// size returns the slot count.
func (a *arena) size() int { return len(a.slots) }

// live returns the number of grains in the ring.
func (a *arena) live() int { return a.count }

// grow ensures every slot can hold frames samples per channel. Live grains
// keep their audio.
func (a *arena) grow(channels, frames int) {
	for i := range a.slots {
		a.slots[i].ensureCapacity(channels, frames)
	}
}

// acquire takes a free slot and appends it to the ring. It returns nil when
// all slots are live.
func (a *arena) acquire() *Grain {
	if len(a.free) == 0 {
		return nil
	}
	idx := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]

	a.ring[(a.head+a.count)%len(a.ring)] = idx
	a.count++
	return &a.slots[idx]
}

// at returns the i-th live grain in spawn order.
func (a *arena) at(i int) *Grain {
	return &a.slots[a.ring[(a.head+i)%len(a.ring)]]
}

// prune releases finished grains and keeps the rest in order.
func (a *arena) prune() {
	kept := 0
	for i := range a.count {
		idx := a.ring[(a.head+i)%len(a.ring)]
		if a.slots[idx].state == StateFinished {
			a.free = append(a.free, idx)
			continue
		}
		a.ring[(a.head+kept)%len(a.ring)] = idx
		kept++
	}
	a.count = kept
	if a.count == 0 {
		a.head = 0
	}
}

// reset releases every slot.
func (a *arena) reset() {
	a.head = 0
	a.count = 0
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 0; i-- {
		a.slots[i].state = StateFinished
		a.free = append(a.free, i)
	}
}
