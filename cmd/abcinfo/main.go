// Command abcinfo inspects bytecode containers.
//
//	abcinfo info app.zip!/classes.abc
//	abcinfo verify classes.abc
//	abcinfo classes classes.abc
//	abcinfo find --hash-table classes.abc 'Lcom/example/Main;'
//	abcinfo diff old.abc new.abc
//
// Settings can also come from a config file (--config) or ABCINFO_*
// environment variables, e.g. ABCINFO_LOG_LEVEL=debug.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

// Version is set via -ldflags.
var Version = "dev"

func main() {
	root := newRootCmd()
	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
