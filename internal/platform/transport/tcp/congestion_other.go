//go:build !linux

package tcp

import "fmt"

func setCongestionControl(_ uintptr, algorithm string) error {
	return fmt.Errorf("congestion control %q is only supported on linux", algorithm)
}
