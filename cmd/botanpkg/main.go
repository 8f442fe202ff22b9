package main

import "github.com/goplus/botanpkg/cmd/botanpkg/internal"

func main() {
	internal.Execute()
}
