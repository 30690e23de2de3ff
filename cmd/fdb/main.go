package main

import (
	"os"

	"github.com/fdbdbg/fdb/cmd/fdb/cmds"
	"github.com/fdbdbg/fdb/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.FdbVersion.Build = Build
	}
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
