package optimizer

import (
	"testing"

	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

func constIdx(c *chunk.Chunk, v value.Value) byte {
	return byte(c.AddConstant(v))
}

func TestFoldsSingleAddition(t *testing.T) {
	c := chunk.New()
	a := constIdx(c, value.Number(2))
	b := constIdx(c, value.Number(3))
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(a, 1)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(b, 1)
	c.WriteOp(chunk.OpAdd, 1)
	c.WriteOp(chunk.OpReturn, 1)

	Optimize(c)

	if len(c.Code) != 3 {
		t.Fatalf("expected folded code to be 3 bytes (CONSTANT idx RETURN), got %d: %v", len(c.Code), c.Code)
	}
	if chunk.OpCode(c.Code[0]) != chunk.OpConstant {
		t.Fatalf("expected first op to be OP_CONSTANT, got %s", chunk.OpCode(c.Code[0]))
	}
	got := c.Constants[c.Code[1]]
	if !got.IsNumber() || got.AsNumber() != 5 {
		t.Fatalf("expected folded constant 5, got %v", got)
	}
}

func TestDoesNotFoldStrings(t *testing.T) {
	c := chunk.New()
	// A string operand must block folding: only number pairs are folded.
	a := constIdx(c, value.FromObj(object.NewString([]byte("foo"))))
	b := constIdx(c, value.Number(3))
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(a, 1)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(b, 1)
	c.WriteOp(chunk.OpAdd, 1)

	before := len(c.Code)
	Optimize(c)
	if len(c.Code) != before {
		t.Fatalf("expected non-number operands to block folding, code changed from %d to %d bytes", before, len(c.Code))
	}
}

func TestCascadingFold(t *testing.T) {
	c := chunk.New()
	a := constIdx(c, value.Number(1))
	b := constIdx(c, value.Number(2))
	d := constIdx(c, value.Number(3))
	// 1 + 2 + 3, left-associative: (1+2)+3
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(a, 1)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(b, 1)
	c.WriteOp(chunk.OpAdd, 1)
	c.WriteOp(chunk.OpConstant, 1)
	c.Write(d, 1)
	c.WriteOp(chunk.OpAdd, 1)

	Optimize(c)

	if len(c.Code) != 2 {
		t.Fatalf("expected the whole chain to cascade-fold to one CONSTANT, got %d bytes: %v", len(c.Code), c.Code)
	}
	got := c.Constants[c.Code[1]]
	if got.AsNumber() != 6 {
		t.Fatalf("expected 6, got %v", got.AsNumber())
	}
}
