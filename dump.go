package orderagent

import (
	"fmt"
	"io"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

var dumpConfig = spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}

// Dump pretty-prints values to stdout prefixed with the caller's location.
func Dump(v ...any) {
	_, file, line, _ := runtime.Caller(1)
	args := append([]any{fmt.Sprintf("%s:%d:", file, line)}, v...)
	dumpConfig.Dump(args...)
}

// DumpTurn writes a readable view of a turn result, used by the CLI debug mode.
func DumpTurn(w io.Writer, r TurnResult) {
	dumpConfig.Fdump(w, r)
}
