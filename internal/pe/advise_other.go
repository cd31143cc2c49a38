//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package pe

func adviseSequential([]byte) {}
