package testutils

import "sync/atomic"

// MockAllocator allocates from the heap and counts hook calls.
type MockAllocator struct {
	FreeErr error // Returned by every Free call when set.

	allocCalls atomic.Int64
	freeCalls  atomic.Int64
	allocBytes atomic.Int64
}

func (a *MockAllocator) Alloc(nbytes int) []byte {
	a.allocCalls.Add(1)
	a.allocBytes.Add(int64(nbytes))
	return make([]byte, nbytes)
}

func (a *MockAllocator) Free(b []byte) error {
	a.freeCalls.Add(1)
	return a.FreeErr
}

func (a *MockAllocator) AllocCalls() int64 {
	return a.allocCalls.Load()
}

func (a *MockAllocator) FreeCalls() int64 {
	return a.freeCalls.Load()
}

// AllocBytes returns the total number of bytes requested.
func (a *MockAllocator) AllocBytes() int64 {
	return a.allocBytes.Load()
}

func (a *MockAllocator) BuffersInUse() int64 {
	return a.AllocCalls() - a.FreeCalls()
}

func (a *MockAllocator) Reset() {
	a.allocCalls.Store(0)
	a.freeCalls.Store(0)
	a.allocBytes.Store(0)
}
