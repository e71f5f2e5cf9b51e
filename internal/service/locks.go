package service

import "sync"

// DocLocks serializes mutating operations per document id. Ingestion
// and deletion of the same document must not interleave; different
// documents proceed independently.
type DocLocks struct {
	locks sync.Map
}

func (l *DocLocks) lock(docID string) func() {
	value, _ := l.locks.LoadOrStore(docID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (l *DocLocks) forget(docID string) {
	l.locks.Delete(docID)
}
