package vm

import (
	"bytes"
	"testing"

	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

func interpret(t *testing.T, source string, opts ...Option) (string, *VM) {
	t.Helper()
	var out bytes.Buffer
	machine := New(append([]Option{WithOutput(&out)}, opts...)...)
	if _, err := machine.Interpret(source); err != nil {
		t.Fatalf("unexpected runtime error interpreting %q: %v", source, err)
	}
	return out.String(), machine
}

func TestStringInterningIdentity(t *testing.T) {
	out, _ := interpret(t, `var a = "foo" + "bar"; var b = "foobar"; print a == b;`)
	if out != "true\n" {
		t.Fatalf("expected true, got %q", out)
	}
}

func TestClosureCaptureSharedAcrossInstances(t *testing.T) {
	out, _ := interpret(t, `
fun mk() { var i = 0; fun step() { i = i + 1; return i; } return step; }
var s = mk(); print s(); print s(); print s();
`)
	if out != "1\n2\n3\n" {
		t.Fatalf("expected 1\\n2\\n3\\n, got %q", out)
	}
}

func TestInheritedMethodDispatch(t *testing.T) {
	out, _ := interpret(t, `
class A { greet() { print "hi from A"; } }
class B : A { }
B().greet();
`)
	if out != "hi from A\n" {
		t.Fatalf("expected hi from A, got %q", out)
	}
}

func TestArrayIndexAndSlice(t *testing.T) {
	out, _ := interpret(t, `var a = [10,20,30,40]; print a[2]; print a[1..3];`)
	if out != "30\n[20, 30]\n" {
		t.Fatalf("got %q", out)
	}
}

func TestRuntimeErrorResetsStack(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out))
	_, err := machine.Interpret(`1 + "x";`)
	if err == nil {
		t.Fatal("expected a runtime error")
	}
	if machine.stackTop != 0 || machine.frameCount != 0 {
		t.Fatalf("expected stack reset, got stackTop=%d frameCount=%d", machine.stackTop, machine.frameCount)
	}
}

// TestGCSoundness stresses the collector on every allocation (gcStress)
// and checks that values still reachable from a global survive a full
// program run — spec.md §8: "every object reachable from the roots is
// alive."
func TestGCSoundness(t *testing.T) {
	out, _ := interpret(t, `
class Node { init(v) { this.value = v; } }
var kept;
fun build() {
    var n = Node(1);
    n.next = Node(2);
    n.next.next = Node(3);
    kept = n;
}
build();
print kept.value;
print kept.next.value;
print kept.next.next.value;
`, WithGCStress(true))
	if out != "1\n2\n3\n" {
		t.Fatalf("expected surviving linked objects after GC stress, got %q", out)
	}
}

// TestGCCollectsUnreachableObjects checks that a program which briefly
// allocates a large number of throwaway objects doesn't grow
// bytesAllocated without bound — unreachable objects are actually swept,
// not merely tracked.
func TestGCCollectsUnreachableObjects(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out), WithGCStress(true))
	if _, err := machine.Interpret(`
fun churn() {
    var i = 0;
    while (i < 2000) {
        var s = "garbage" + "value";
        i = i + 1;
    }
}
churn();
print "done";
`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "done\n" {
		t.Fatalf("got %q", out.String())
	}
	if machine.bytesAllocated > 1<<16 {
		t.Fatalf("expected churn's throwaway strings to be collected, bytesAllocated = %d", machine.bytesAllocated)
	}
}

func TestAddOverloadsAndTypeMismatch(t *testing.T) {
	out, _ := interpret(t, `print "a" + "b"; print 1 + 2; print [1] + [2]; print [1] + 2;`)
	want := "ab\n3\n[1, 2]\n[1, 2]\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}

	var errOut bytes.Buffer
	machine := New(WithOutput(&errOut))
	if _, err := machine.Interpret(`print 1 + "x";`); err == nil {
		t.Fatal("expected a type-mismatch runtime error")
	}
}

func TestExponentFullPrecision(t *testing.T) {
	out, _ := interpret(t, `print 2 ** 0.5;`)
	if out != "1.4142135623730951\n" {
		t.Fatalf("expected a full-precision sqrt(2), got %q", out)
	}
}

func TestNativeArityError(t *testing.T) {
	var out bytes.Buffer
	machine := New(WithOutput(&out))
	_, err := machine.Interpret(`strlen();`)
	if err == nil {
		t.Fatal("expected strlen() called with no arguments to runtime-error")
	}
}

func TestNativeClassOf(t *testing.T) {
	out, _ := interpret(t, `
class Foo {}
var f = Foo();
print class_of(f) == Foo;
`)
	if out != "true\n" {
		t.Fatalf("got %q", out)
	}
}

// TestMarkObjectHandlesTypedNil exercises blacken on a Function with a nil
// Name (anonymous/top-level functions) to guard against the typed-nil-in-
// interface panic a naive markObject(o.Name) would hit.
func TestMarkObjectHandlesTypedNil(t *testing.T) {
	machine := New()
	fn := object.NewFunction()
	machine.blacken(fn)
	_ = value.Null()
}
