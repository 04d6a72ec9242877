//go:build linux

package tcp

import "syscall"

func setCongestionControl(fd uintptr, algorithm string) error {
	return syscall.SetsockoptString(int(fd), syscall.IPPROTO_TCP, syscall.TCP_CONGESTION, algorithm)
}
