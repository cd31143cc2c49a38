//go:build linux || darwin || freebsd || netbsd || openbsd

package pe

import "golang.org/x/sys/unix"

// adviseSequential hints that the mapping will be read front to back.
func adviseSequential(b []byte) {
	// Advisory only; failure does not affect correctness.
	_ = unix.Madvise(b, unix.MADV_SEQUENTIAL)
}
