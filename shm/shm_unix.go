//go:build unix

package shm

import "golang.org/x/sys/unix"

// alloc creates an anonymous private mapping. The kernel zero-fills
// anonymous pages, so no explicit clear is needed.
func alloc(size int) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	return unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
}

func free(data []byte) error {
	if data == nil {
		return nil
	}
	return unix.Munmap(data)
}
