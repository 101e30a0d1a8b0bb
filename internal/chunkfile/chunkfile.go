// Package chunkfile implements the binary ".cxcf" persisted-bytecode
// format of spec.md §4.6: a small header followed by a sequence of
// tagged segments (constants, line-info, inner functions, bytecode),
// all integers big-endian.
package chunkfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// VersionMajor/VersionMinor are written into every file's header and
// checked (major only) on load.
const (
	VersionMajor = 1
	VersionMinor = 0
)

const (
	segConstants = 0x00
	segLineInfo  = 0x01
	segInner     = 0x02
	segBytecode  = 0x03
)

const (
	constNumber = 0x00
	constString = 0x01
	// constFunction marks a constant-pool slot whose real payload was
	// elided from this segment and instead lives in the inner-function
	// segment (spec.md §4.6: "string constants pointing to functions are
	// elided from the constant segment and rematerialised from the inner
	// segment... during load"). The spec's grammar doesn't assign this
	// case a byte tag explicitly; this codec uses 0x02 so a
	// function-valued slot keeps its position in the pool, and the inner
	// segment records each function's pool index alongside its body.
	constFunction = 0x02
)

// Write serializes fn (the compiled top-level script function) to w as a
// complete .cxcf file. flags must be zero: spec.md §4.6 reserves the flag
// byte for switches this implementation does not implement, and requires
// the writer to refuse any nonzero value rather than silently drop it.
func Write(w io.Writer, fn *object.Function, flags byte) error {
	if flags != 0 {
		return errors.NewUsageError("chunk file flag byte does not support any optional switches yet")
	}
	bw := bufio.NewWriter(w)
	if err := writeByte(bw, flags); err != nil {
		return wrapIOErr(err)
	}
	if err := writeByte(bw, VersionMajor); err != nil {
		return wrapIOErr(err)
	}
	if err := writeByte(bw, VersionMinor); err != nil {
		return wrapIOErr(err)
	}
	if err := writeChunk(bw, fn.Chunk); err != nil {
		return wrapIOErr(err)
	}
	if err := bw.Flush(); err != nil {
		return wrapIOErr(err)
	}
	return nil
}

func writeChunk(w *bufio.Writer, c *chunk.Chunk) error {
	if err := writeConstantsSeg(w, c); err != nil {
		return err
	}
	if err := writeLineInfoSeg(w, c); err != nil {
		return err
	}
	if err := writeInnerSeg(w, c); err != nil {
		return err
	}
	return writeBytecodeSeg(w, c)
}

func writeConstantsSeg(w *bufio.Writer, c *chunk.Chunk) error {
	if err := writeByte(w, segConstants); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(c.Constants))); err != nil {
		return err
	}
	for _, v := range c.Constants {
		switch {
		case v.IsNumber():
			if err := writeByte(w, constNumber); err != nil {
				return err
			}
			if err := writeU64(w, math.Float64bits(v.AsNumber())); err != nil {
				return err
			}
		case v.IsObjKind(value.ObjKindString):
			if err := writeByte(w, constString); err != nil {
				return err
			}
			if err := writeZString(w, v.AsObj().(*object.String).Chars); err != nil {
				return err
			}
		case v.IsObjKind(value.ObjKindFunction):
			if err := writeByte(w, constFunction); err != nil {
				return err
			}
		default:
			return errors.NewIOError("chunk file: constant pool holds a non-persistable value", nil)
		}
	}
	return nil
}

func writeLineInfoSeg(w *bufio.Writer, c *chunk.Chunk) error {
	if err := writeByte(w, segLineInfo); err != nil {
		return err
	}
	n := c.LineRunCount()
	if err := writeU32(w, uint32(n)); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		line, lastOffset := c.LineRunAt(i)
		if err := writeU32(w, uint32(line)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(lastOffset)); err != nil {
			return err
		}
	}
	return nil
}

func writeInnerSeg(w *bufio.Writer, c *chunk.Chunk) error {
	if err := writeByte(w, segInner); err != nil {
		return err
	}
	var fns []struct {
		idx int
		fn  *object.Function
	}
	for i, v := range c.Constants {
		if v.IsObjKind(value.ObjKindFunction) {
			fns = append(fns, struct {
				idx int
				fn  *object.Function
			}{i, v.AsObj().(*object.Function)})
		}
	}
	if err := writeU32(w, uint32(len(fns))); err != nil {
		return err
	}
	for _, entry := range fns {
		if err := writeU32(w, uint32(entry.idx)); err != nil {
			return err
		}
		name := []byte{}
		if entry.fn.Name != nil {
			name = entry.fn.Name.Chars
		}
		if err := writeZString(w, name); err != nil {
			return err
		}
		if err := writeU32(w, uint32(entry.fn.Arity)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(entry.fn.UpvalueCount)); err != nil {
			return err
		}
		if err := writeChunk(w, entry.fn.Chunk); err != nil {
			return err
		}
	}
	return nil
}

func writeBytecodeSeg(w *bufio.Writer, c *chunk.Chunk) error {
	if err := writeByte(w, segBytecode); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(c.Code))); err != nil {
		return err
	}
	_, err := w.Write(c.Code)
	return err
}

func writeByte(w *bufio.Writer, b byte) error { return w.WriteByte(b) }

func writeU32(w *bufio.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeU64(w *bufio.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

// writeZString writes a length-prefixed byte string. The spec names this
// "zstring"; rather than a C-style NUL terminator (Cellox strings may
// contain embedded NUL bytes via \0-style octal escapes), this codec
// uses a u32 length prefix so round-tripping is exact.
func writeZString(w *bufio.Writer, s []byte) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write(s)
	return err
}

func wrapIOErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewIOError("failed writing chunk file", err)
}
