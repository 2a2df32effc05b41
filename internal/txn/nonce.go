package txn

import "sync"

// NonceAllocator hands out sequential nonces from a seed read once per run.
// It never re-reads the chain, so another sender using the same account
// invalidates it.
type NonceAllocator struct {
	mu   sync.Mutex
	next uint64
}

func NewNonceAllocator(seed uint64) *NonceAllocator {
	return &NonceAllocator{next: seed}
}

// Reserve returns the next nonce and advances the counter.
func (a *NonceAllocator) Reserve() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.next
	a.next++
	return n
}

// Peek returns the nonce the next Reserve will hand out.
func (a *NonceAllocator) Peek() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
