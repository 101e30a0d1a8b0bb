// Package chunk implements the bytecode chunk format of spec.md §4.4: a
// dynamic byte array of instructions, a parallel run-length-encoded
// line-info table, and a constant pool.
package chunk

import (
	"sort"

	"github.com/FrederikTobner/cellox/internal/value"
)

// growthFactor and minCapacity match spec.md §4.4: "Capacity growth
// factor 1.5 (floor 8) for code and line info; hash tables grow by 2×
// (floor 8)" — the hash table side of that sentence lives in
// internal/table.
const (
	growthFactor = 1.5
	minCapacity  = 8
)

// lineRun is one entry of the line-info table: "the last instruction
// offset in this line," following original_source/src/chunk.c's
// getLine, which binary-searches a table of {line,
// lastInstructionOffsetOnThisLine} sorted ascending by offset, rather
// than walking run-lengths linearly (spec.md §4.4 names the run
// encoding; SPEC_FULL pins the lookup algorithm to the original's).
type lineRun struct {
	line       int
	lastOffset int
}

// Chunk owns emitted bytecode, its constant pool, and the line-info
// table used to report a source line for any code offset.
type Chunk struct {
	Code      []byte
	Constants []value.Value
	lines     []lineRun
}

// New returns an empty chunk.
func New() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, minCapacity),
		Constants: make([]value.Value, 0, minCapacity),
	}
}

// Write appends one byte (an opcode or an operand byte) tagged with its
// source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	offset := len(c.Code) - 1
	if n := len(c.lines); n > 0 && c.lines[n-1].line == line {
		c.lines[n-1].lastOffset = offset
		return
	}
	c.lines = append(c.lines, lineRun{line: line, lastOffset: offset})
}

// WriteOp appends an opcode byte.
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends a value to the constant pool and returns its index.
// Callers are responsible for the 256-per-function limit (spec.md §4.3:
// "Local/upvalue/constant indices are 1 byte").
func (c *Chunk) AddConstant(v value.Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// LineAt returns the source line that produced the instruction byte at
// offset, by binary-searching the ascending lastOffset table — offsets
// within a run all share that run's line, and the table is sorted
// because offsets only grow as code is emitted.
func (c *Chunk) LineAt(offset int) int {
	idx := sort.Search(len(c.lines), func(i int) bool {
		return c.lines[i].lastOffset >= offset
	})
	if idx == len(c.lines) {
		if len(c.lines) == 0 {
			return 0
		}
		idx = len(c.lines) - 1
	}
	return c.lines[idx].line
}

// PatchJump backfills a 2-byte big-endian jump offset at the given code
// offset with the distance from just past the operand to the current end
// of code, matching spec.md §4.3's "Jumps are 2-byte big-endian unsigned
// offsets."
func (c *Chunk) PatchJump(operandOffset int) {
	jump := len(c.Code) - operandOffset - 2
	c.Code[operandOffset] = byte((jump >> 8) & 0xff)
	c.Code[operandOffset+1] = byte(jump & 0xff)
}

// EmitLoop appends OP_LOOP followed by the 2-byte backward offset to
// loopStart.
func (c *Chunk) EmitLoop(loopStart, line int) {
	c.WriteOp(OpLoop, line)
	offset := len(c.Code) - loopStart + 2
	c.Write(byte((offset>>8)&0xff), line)
	c.Write(byte(offset&0xff), line)
}

// RemoveRange deletes code[start:end], shifting every later byte back
// and adjusting the line-info table's offsets to match — used by the
// peephole optimizer, which collapses a folded constant expression down
// to fewer bytes (spec.md §4.5: "adjust line-info indices by -3").
func (c *Chunk) RemoveRange(start, end int) {
	n := end - start
	c.Code = append(c.Code[:start], c.Code[end:]...)
	out := c.lines[:0]
	for _, r := range c.lines {
		switch {
		case r.lastOffset < start:
			out = append(out, r)
		case r.lastOffset >= end:
			out = append(out, lineRun{line: r.line, lastOffset: r.lastOffset - n})
		default:
			// A run ending inside the removed range is dropped when the
			// previous kept run has the same line; otherwise it is kept,
			// clamped to end at start-1.
			if len(out) == 0 || out[len(out)-1].line != r.line {
				out = append(out, lineRun{line: r.line, lastOffset: start - 1})
			}
		}
	}
	c.lines = out
}

// LineRunCount and LineRunAt expose the run-length line-info table for
// the chunk-file codec (internal/chunkfile), which persists it verbatim
// rather than recomputing it on load.
func (c *Chunk) LineRunCount() int { return len(c.lines) }

func (c *Chunk) LineRunAt(i int) (line, lastOffset int) {
	r := c.lines[i]
	return r.line, r.lastOffset
}

// AppendLineRun appends a raw line-info run, used by the chunk-file
// codec when reconstructing a chunk from disk.
func (c *Chunk) AppendLineRun(line, lastOffset int) {
	c.lines = append(c.lines, lineRun{line: line, lastOffset: lastOffset})
}
