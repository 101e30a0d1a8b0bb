// Package optimizer implements the peephole constant folder of spec.md
// §4.5: a single post-compilation pass over a chunk's bytecode that
// collapses `CONSTANT a CONSTANT b BINOP` runs into a single folded
// constant when both operands are numbers.
package optimizer

import (
	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// foldableOps is the set of opcodes eligible for constant folding —
// "BINOP ∈ {ADD,SUB,MUL,DIV}" per spec.md §4.5. MODULO/EXPONENT are
// deliberately excluded: the spec names exactly four.
var foldableOps = map[chunk.OpCode]func(a, b float64) float64{
	chunk.OpAdd:      func(a, b float64) float64 { return a + b },
	chunk.OpSubtract: func(a, b float64) float64 { return a - b },
	chunk.OpMultiply: func(a, b float64) float64 { return a * b },
	chunk.OpDivide:   func(a, b float64) float64 { return a / b },
}

// Optimize folds constant arithmetic in place across c and every nested
// function chunk reachable from its constant pool (each compiled
// function owns its own chunk, so folding must recurse).
func Optimize(c *chunk.Chunk) {
	foldChunk(c)
	for _, v := range c.Constants {
		if v.IsObjKind(value.ObjKindFunction) {
			Optimize(v.AsObj().(*object.Function).Chunk)
		}
	}
}

// foldChunk repeatedly scans for a CONSTANT-CONSTANT-BINOP run where
// both constants are numbers, replacing it with a single folded
// CONSTANT. Per spec.md §4.5, after a fold it rewinds to the start of
// the preceding instruction so a run of folds cascades (`a+b+c` folds
// fully rather than just its first pair).
//
// The scan walks actual instruction boundaries (via instructionLength)
// rather than stepping byte-by-byte: a blind byte scan would risk
// reading an operand byte — e.g. constant index 0, which collides with
// OP_CONSTANT's own opcode value — as if it were the start of the next
// instruction.
func foldChunk(c *chunk.Chunk) {
	offsets := instructionOffsets(c)
	i := 0
	for i+2 < len(offsets) {
		first := offsets[i]
		if chunk.OpCode(c.Code[first]) != chunk.OpConstant {
			i++
			continue
		}
		second := offsets[i+1]
		if chunk.OpCode(c.Code[second]) != chunk.OpConstant {
			i++
			continue
		}
		binOpOffset := offsets[i+2]
		op := chunk.OpCode(c.Code[binOpOffset])
		fold, foldable := foldableOps[op]
		if !foldable {
			i++
			continue
		}

		aIdx, bIdx := int(c.Code[first+1]), int(c.Code[second+1])
		a, b := c.Constants[aIdx], c.Constants[bIdx]
		if !a.IsNumber() || !b.IsNumber() {
			i++
			continue
		}

		c.Constants[aIdx] = value.Number(fold(a.AsNumber(), b.AsNumber()))
		c.RemoveRange(second, binOpOffset+1)

		offsets = instructionOffsets(c)
		if i >= 1 {
			i--
		}
	}
}

// instructionOffsets returns the code offset of every instruction's
// opcode byte, in order, so the folder can reason in instruction units
// instead of raw bytes.
func instructionOffsets(c *chunk.Chunk) []int {
	var offsets []int
	for off := 0; off < len(c.Code); {
		offsets = append(offsets, off)
		off += instructionLength(c, off)
	}
	return offsets
}

// instructionLength returns the total byte length (opcode plus operand)
// of the instruction at offset. OP_CLOSURE is variable-length: its
// operand is a constant index followed by one (is_local, index) byte
// pair per upvalue the referenced function closes over.
func instructionLength(c *chunk.Chunk, offset int) int {
	op := chunk.OpCode(c.Code[offset])
	switch op {
	case chunk.OpConstant,
		chunk.OpGetLocal, chunk.OpSetLocal,
		chunk.OpGetUpvalue, chunk.OpSetUpvalue,
		chunk.OpGetGlobal, chunk.OpSetGlobal, chunk.OpDefineGlobal,
		chunk.OpGetProperty, chunk.OpSetProperty, chunk.OpGetSuper,
		chunk.OpCall, chunk.OpClass, chunk.OpMethod, chunk.OpArrayLiteral:
		return 2
	case chunk.OpJump, chunk.OpJumpIfFalse, chunk.OpLoop,
		chunk.OpInvoke, chunk.OpSuperInvoke:
		return 3
	case chunk.OpClosure:
		constIdx := int(c.Code[offset+1])
		upvalueCount := 0
		if fn, ok := c.Constants[constIdx].AsObj().(*object.Function); ok {
			upvalueCount = fn.UpvalueCount
		}
		return 2 + 2*upvalueCount
	default:
		return 1
	}
}
