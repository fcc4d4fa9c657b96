package helpers

import (
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Describes the calling goroutine's stack with one "package.function
// (dir/file.go:line)" entry per frame, innermost first. Frames inside the Go
// runtime are left out, which includes the panic machinery when this is called
// from a deferred recover.
func PrettyPrintedStack() string {
	pcs := make([]uintptr, 64)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	sb := strings.Builder{}

	for {
		frame, more := frames.Next()
		if frame.Function != "" && !strings.HasPrefix(frame.Function, "runtime.") {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			name := frame.Function
			if slash := strings.LastIndexByte(name, '/'); slash != -1 {
				name = name[slash+1:]
			}
			file := path.Join(path.Base(path.Dir(frame.File)), path.Base(frame.File))
			fmt.Fprintf(&sb, "%s (%s:%d)", name, file, frame.Line)
		}
		if !more {
			break
		}
	}

	return sb.String()
}
