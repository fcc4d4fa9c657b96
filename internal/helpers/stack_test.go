package helpers

import (
	"strings"
	"testing"
)

func TestPrettyPrintedStack(t *testing.T) {
	lines := strings.Split(PrettyPrintedStack(), "\n")
	if !strings.HasPrefix(lines[0], "helpers.TestPrettyPrintedStack (helpers/stack_test.go:") {
		t.Fatalf("Unexpected first frame: %q", lines[0])
	}
	for _, line := range lines {
		if strings.HasPrefix(line, "runtime.") {
			t.Fatalf("Unexpected runtime frame: %q", line)
		}
	}
}

func TestPrettyPrintedStackInRecover(t *testing.T) {
	var stack string
	func() {
		defer func() {
			recover()
			stack = PrettyPrintedStack()
		}()
		panic("oops")
	}()
	if !strings.Contains(stack, "helpers.TestPrettyPrintedStackInRecover") {
		t.Fatalf("Missing test frame:\n%s", stack)
	}
}
