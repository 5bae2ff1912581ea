package services

import "sync"

// stripedLock serializes operations on entities by id without holding a
// lock per row. Booking, invoice numbering and workflow transitions all
// run their check-and-commit section under the stripe for the entity so
// two requests on the same case or slot never interleave.
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (l *stripedLock) Lock(id uint) {
	l.stripes[int(id)%len(l.stripes)].Lock()
}

func (l *stripedLock) Unlock(id uint) {
	l.stripes[int(id)%len(l.stripes)].Unlock()
}

var (
	caseLocks = newStripedLock(64)
	slotLocks = newStripedLock(64)

	// invoice and quote numbers are allocated per calendar year; one
	// mutex each is enough for a single-process deployment, the unique
	// index on the number column is the backstop
	invoiceNumberMu sync.Mutex
	quoteNumberMu   sync.Mutex
)
