//go:build !unix

package arena

import "fmt"

// allocate falls back to the Go heap where mmap is not available.
func allocate(size int) (mem []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return make([]byte, size), nil
}

func release([]byte) error {
	return nil
}
