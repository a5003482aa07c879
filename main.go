package main

import (
	"os"

	"github.com/orbitcore/profiler/cmd/orbitctl"
)

func main() {
	os.Exit(orbitctl.Execute())
}
