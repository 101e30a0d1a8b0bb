package vm

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/FrederikTobner/cellox/internal/chunk"
)

// Tracer writes a per-instruction execution trace and GC log lines to a
// single writer, the runtime counterpart to original_source's
// DEBUG_TRACE_EXECUTION / DEBUG_LOG_GC compile-time flags turned into a
// runtime option (spec.md §4.7, SPEC_FULL's "Logging / diagnostics"
// section). Every line is tagged with the owning VM's id so trace output
// from more than one instance sharing a process (e.g. several VMs built
// by one test binary) can still be told apart.
type Tracer struct {
	w  io.Writer
	id uuid.UUID
}

// NewTracer returns a Tracer writing to w, tagging every line with id.
func NewTracer(w io.Writer, id uuid.UUID) *Tracer {
	return &Tracer{w: w, id: id}
}

func (t *Tracer) Logf(format string, args ...interface{}) {
	fmt.Fprintf(t.w, "[vm %s] "+format+"\n", append([]interface{}{t.id}, args...)...)
}

// TraceInstruction prints the instruction at ip in c, in the disassembly
// format the chunkfile/optimizer packages' opcode naming already uses:
// offset, source line (or "|" if it repeats the previous instruction's
// line), mnemonic, and any operand.
func (t *Tracer) TraceInstruction(c *chunk.Chunk, ip int) {
	op := chunk.OpCode(c.Code[ip])
	line := c.LineAt(ip)
	lineCol := fmt.Sprintf("%4d", line)
	if ip > 0 && c.LineAt(ip-1) == line {
		lineCol = "   |"
	}

	switch op {
	case chunk.OpConstant, chunk.OpGetGlobal, chunk.OpSetGlobal, chunk.OpDefineGlobal,
		chunk.OpGetProperty, chunk.OpSetProperty, chunk.OpGetSuper,
		chunk.OpClass, chunk.OpMethod:
		idx := c.Code[ip+1]
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s %4d '%s'\n", t.id, ip, lineCol, op, idx, c.Constants[idx].String())
	case chunk.OpGetLocal, chunk.OpSetLocal, chunk.OpGetUpvalue, chunk.OpSetUpvalue,
		chunk.OpCall, chunk.OpArrayLiteral:
		operand := c.Code[ip+1]
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s %4d\n", t.id, ip, lineCol, op, operand)
	case chunk.OpJump, chunk.OpJumpIfFalse:
		offset := int(c.Code[ip+1])<<8 | int(c.Code[ip+2])
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s %4d -> %d\n", t.id, ip, lineCol, op, ip, ip+3+offset)
	case chunk.OpLoop:
		offset := int(c.Code[ip+1])<<8 | int(c.Code[ip+2])
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s %4d -> %d\n", t.id, ip, lineCol, op, ip, ip+3-offset)
	case chunk.OpInvoke, chunk.OpSuperInvoke:
		idx := c.Code[ip+1]
		argc := c.Code[ip+2]
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s (%d args) %4d '%s'\n", t.id, ip, lineCol, op, argc, idx, c.Constants[idx].String())
	case chunk.OpClosure:
		idx := c.Code[ip+1]
		fmt.Fprintf(t.w, "[vm %s] %04d %s %-16s %4d '%s'\n", t.id, ip, lineCol, op, idx, c.Constants[idx].String())
	default:
		fmt.Fprintf(t.w, "[vm %s] %04d %s %s\n", t.id, ip, lineCol, op)
	}
}
