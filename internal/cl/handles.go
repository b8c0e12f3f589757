package cl

import "sync"

// handleTable maps driver objects to the integer handles handed out by an
// API. The same object always maps to the same handle until it is taken.
type handleTable[T comparable] struct {
	mu   sync.Mutex
	next uint64
	byID map[uint64]T
	ids  map[T]uint64
}

func (h *handleTable[T]) put(v T) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byID == nil {
		h.byID = make(map[uint64]T)
		h.ids = make(map[T]uint64)
	}
	if id, ok := h.ids[v]; ok {
		return id
	}

	h.next++
	h.byID[h.next] = v
	h.ids[v] = h.next
	return h.next
}

func (h *handleTable[T]) get(id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.byID[id]
	return v, ok
}

// take removes the handle. It fails for unknown or already-taken handles.
func (h *handleTable[T]) take(id uint64) (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	v, ok := h.byID[id]
	if !ok {
		return v, false
	}
	delete(h.byID, id)
	delete(h.ids, v)
	return v, true
}

func (h *handleTable[T]) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.byID)
}
