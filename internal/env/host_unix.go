//go:build unix

package env

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func uname() (sysname, machine string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return runtime.GOOS, runtime.GOARCH
	}
	return unix.ByteSliceToString(u.Sysname[:]), unix.ByteSliceToString(u.Machine[:])
}
