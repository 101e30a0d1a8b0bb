package chunkfile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/FrederikTobner/cellox/internal/compiler"
	"github.com/FrederikTobner/cellox/internal/intern"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// snapshot is a comparable projection of a compiled function: spec.md
// §8's chunk-file round-trip invariant is "structurally equal modulo
// interning," so the snapshot captures code bytes, line-info runs, and
// constants by value (string constants by their bytes, not their
// *object.String identity) rather than comparing object graphs directly.
type snapshot struct {
	Name      string
	Arity     int
	Upvalues  int
	Code      []byte
	Lines     []lineSnapshot
	Constants []constSnapshot
}

type lineSnapshot struct {
	Line       int
	LastOffset int
}

type constSnapshot struct {
	Number   float64
	IsNumber bool
	String   string
	IsString bool
	Function *snapshot
}

func snapshotFunction(f *object.Function) *snapshot {
	s := &snapshot{Arity: f.Arity, Upvalues: f.UpvalueCount, Code: append([]byte(nil), f.Chunk.Code...)}
	if f.Name != nil {
		s.Name = f.Name.String()
	}
	for i := 0; i < f.Chunk.LineRunCount(); i++ {
		line, last := f.Chunk.LineRunAt(i)
		s.Lines = append(s.Lines, lineSnapshot{Line: line, LastOffset: last})
	}
	for _, c := range f.Chunk.Constants {
		switch {
		case c.IsNumber():
			s.Constants = append(s.Constants, constSnapshot{Number: c.AsNumber(), IsNumber: true})
		case c.IsObjKind(value.ObjKindString):
			s.Constants = append(s.Constants, constSnapshot{String: c.AsObj().(*object.String).String(), IsString: true})
		case c.IsObjKind(value.ObjKindFunction):
			s.Constants = append(s.Constants, constSnapshot{Function: snapshotFunction(c.AsObj().(*object.Function))})
		}
	}
	return s
}

func TestChunkFileRoundTrip(t *testing.T) {
	source := `
fun outer(a, b) {
    var sum = a + b;
    fun inner(x) { return x * 2; }
    return inner(sum) + "done";
}
print outer(1, 2);
`
	compiled, errs := compiler.Compile(source, intern.New())
	if errs != nil {
		t.Fatalf("unexpected compile errors: %v", errs)
	}

	var buf bytes.Buffer
	if err := Write(&buf, compiled, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Read(&buf, intern.New())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := snapshotFunction(compiled)
	got := snapshotFunction(loaded)
	if diff := pretty.Diff(want, got); len(diff) > 0 {
		t.Fatalf("round trip mismatch:\n%s", strings.Join(diff, "\n"))
	}
}

func TestWriteRejectsUnimplementedFlags(t *testing.T) {
	compiled, errs := compiler.Compile(`print "hi";`, intern.New())
	if errs != nil {
		t.Fatalf("unexpected compile errors: %v", errs)
	}
	var buf bytes.Buffer
	if err := Write(&buf, compiled, 1); err == nil {
		t.Fatal("expected Write to reject a nonzero flag byte")
	}
}
