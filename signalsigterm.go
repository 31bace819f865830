//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build darwin dragonfly freebsd linux netbsd openbsd solaris

package main

import (
	"os"
	"syscall"
)

// SIGTERM from service managers gets the same clean shutdown as Ctrl+C.
func init() {
	signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
}
