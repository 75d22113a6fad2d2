package scheduler

import (
	"container/list"
	"sync"
)

// DedupSet remembers which reservations this scheduler instance has
// already announced or is announcing.  It holds at most max ids and drops
// the oldest when full.  Nothing is persisted.
type DedupSet struct {
	mu    sync.Mutex
	max   int
	order *list.List
	items map[uint64]*list.Element
}

func NewDedupSet(max int) *DedupSet {
	if max <= 0 {
		max = 4096
	}
	return &DedupSet{max: max, order: list.New(), items: make(map[uint64]*list.Element)}
}

// Add inserts id and reports whether it was absent.
func (d *DedupSet) Add(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.items[id]; ok {
		return false
	}
	d.items[id] = d.order.PushBack(id)
	for d.order.Len() > d.max {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.items, oldest.Value.(uint64))
	}
	return true
}

func (d *DedupSet) Has(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.items[id]
	return ok
}

// Remove forgets id so a later tick may retry it.
func (d *DedupSet) Remove(id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.items[id]; ok {
		d.order.Remove(el)
		delete(d.items, id)
	}
}

func (d *DedupSet) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
