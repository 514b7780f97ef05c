package vm

import "fmt"

type record struct {
	content string
	refs    int
}

// Heap holds the reference-counted strings created at run time. A record is freed as soon as its
// count drops to zero and its id is reused by a later Alloc.
type Heap struct {
	records map[int64]*record
	free    []int64
	next    int64
}

func NewHeap() *Heap {
	return &Heap{records: make(map[int64]*record)}
}

// Alloc stores s with a count of one and returns its id.
func (h *Heap) Alloc(s string) int64 {
	var id int64
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		id = h.next
		h.next++
	}
	h.records[id] = &record{content: s, refs: 1}
	return id
}

func (h *Heap) get(id int64) *record {
	r, ok := h.records[id]
	if !ok {
		panic(fmt.Sprintf("vm: heap record %d is not live", id))
	}
	return r
}

func (h *Heap) Incr(id int64) { h.get(id).refs++ }

// Decr drops one reference, freeing the record when none remain.
func (h *Heap) Decr(id int64) {
	r := h.get(id)
	r.refs--
	if r.refs == 0 {
		delete(h.records, id)
		h.free = append(h.free, id)
	}
}

func (h *Heap) Get(id int64) string { return h.get(id).content }

// Refs returns the reference count of a live record.
func (h *Heap) Refs(id int64) int { return h.get(id).refs }

// Live is the number of records not yet freed.
func (h *Heap) Live() int { return len(h.records) }
