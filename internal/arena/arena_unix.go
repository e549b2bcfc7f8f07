//go:build unix

package arena

import "golang.org/x/sys/unix"

// allocate maps anonymous memory outside the Go heap so the GC never has to
// scan or move the arena.
func allocate(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_ANON|unix.MAP_PRIVATE,
	)
}

func release(mem []byte) error {
	return unix.Munmap(mem)
}
