// Package scenario runs the end-to-end source-to-stdout scenarios of
// spec.md §8 in-process, each case authored as a txtar archive (one
// "source" file, one "stdout" file) held inline in the cases slice below.
package scenario

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"

	"github.com/FrederikTobner/cellox/internal/vm"
)

var cases = []string{
	// 1. Fibonacci recursion.
	`
-- source --
fun fib(n) { if (n < 2) return n; return fib(n-1) + fib(n-2); }
print fib(10);
-- stdout --
55
`,
	// 2. Closure over a mutable counter.
	`
-- source --
fun mk() { var i = 0; fun step() { i = i + 1; return i; } return step; }
var s = mk(); print s(); print s(); print s();
-- stdout --
1
2
3
`,
	// 3. Class with initializer and inheritance.
	`
-- source --
class A { greet() { print "hi from A"; } }
class B : A { }
B().greet();
-- stdout --
hi from A
`,
	// 4. String interning observable via equality.
	`
-- source --
var a = "foo" + "bar"; var b = "foobar"; print a == b;
-- stdout --
true
`,
	// 5. Array slice and index.
	`
-- source --
var a = [10,20,30,40]; print a[2]; print a[1..3];
-- stdout --
30
[20, 30]
`,
}

func TestScenarios(t *testing.T) {
	for i, raw := range cases {
		arc := txtar.Parse([]byte(raw))
		source := fileNamed(t, arc, "source")
		wantOut := fileNamed(t, arc, "stdout")

		var out bytes.Buffer
		machine := vm.New(vm.WithOutput(&out))
		if _, err := machine.Interpret(source); err != nil {
			t.Fatalf("scenario %d: unexpected runtime error: %v", i+1, err)
		}
		if got := out.String(); got != wantOut {
			t.Errorf("scenario %d: stdout = %q, want %q", i+1, got, wantOut)
		}
	}
}

// TestRuntimeErrorStackTrace covers scenario 6: a runtime error's frame
// trace is innermost-first, one line per active call.
func TestRuntimeErrorStackTrace(t *testing.T) {
	source := `fun g() { return 1 + "x"; }
fun f() { return g(); }
f();
`
	machine := vm.New(vm.WithOutput(&bytes.Buffer{}))
	_, err := machine.Interpret(source)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if len(err.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d: %v", len(err.Frames), err.Frames)
	}
	wantNames := []string{"g", "f", ""}
	for i, name := range wantNames {
		if err.Frames[i].Function != name {
			t.Errorf("frame %d: function = %q, want %q", i, err.Frames[i].Function, name)
		}
	}
	if err.Frames[0].Line != 1 || err.Frames[1].Line != 2 || err.Frames[2].Line != 3 {
		t.Errorf("unexpected frame lines: %+v", err.Frames)
	}
}

func fileNamed(t *testing.T, arc *txtar.Archive, name string) string {
	t.Helper()
	for _, f := range arc.Files {
		if strings.TrimSpace(f.Name) == name {
			return string(f.Data)
		}
	}
	t.Fatalf("txtar archive missing %q section", name)
	return ""
}
