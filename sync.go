package pixstore

import "sync"

// SyncStore serializes all access to a Store behind a mutex, making it safe to
// share between goroutines.
type SyncStore struct {
	mu sync.Mutex
	s  *Store
}

// Synchronized wraps s. The caller must not use s directly afterwards.
func Synchronized(s *Store) *SyncStore {
	return &SyncStore{s: s}
}

func (ss *SyncStore) Get(nbytes int) Chunk {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Get(nbytes)
}

func (ss *SyncStore) Put(c *Chunk) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Put(c)
}

func (ss *SyncStore) Alloc(nbytes int) []byte {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Alloc(nbytes)
}

func (ss *SyncStore) Free(b []byte) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Free(b)
}

func (ss *SyncStore) Outstanding() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Outstanding()
}

func (ss *SyncStore) Report() Report {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Report()
}

func (ss *SyncStore) Close() error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.s.Close()
}
