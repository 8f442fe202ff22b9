//go:build !unix

package env

import "runtime"

func uname() (sysname, machine string) {
	return runtime.GOOS, runtime.GOARCH
}
