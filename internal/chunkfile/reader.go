package chunkfile

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/FrederikTobner/cellox/internal/chunk"
	"github.com/FrederikTobner/cellox/internal/errors"
	"github.com/FrederikTobner/cellox/internal/intern"
	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Read deserializes a .cxcf file written by Write, interning any string
// constants into interner so they compare identical to strings the VM
// already holds.
func Read(r io.Reader, interner *intern.Table) (*object.Function, error) {
	br := bufio.NewReader(r)

	flags, err := readByte(br)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	if flags != 0 {
		return nil, errors.NewIOError("chunk file uses unsupported flag bits", nil)
	}
	major, err := readByte(br)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	if _, err := readByte(br); err != nil { // minor version, not gated on
		return nil, wrapReadErr(err)
	}
	if major != VersionMajor {
		return nil, errors.NewIOError("chunk file was written by an incompatible version", nil)
	}

	fn := object.NewFunction()
	if err := readChunkInto(br, fn.Chunk, interner); err != nil {
		return nil, err
	}
	return fn, nil
}

func readChunkInto(r *bufio.Reader, c *chunk.Chunk, interner *intern.Table) error {
	var innerEntries []innerFuncEntry
	var functionSlots []int

	for i := 0; i < 4; i++ {
		tag, err := readByte(r)
		if err != nil {
			return wrapReadErr(err)
		}
		switch tag {
		case segConstants:
			slots, err := readConstantsSeg(r, c, interner)
			if err != nil {
				return err
			}
			functionSlots = slots
		case segLineInfo:
			if err := readLineInfoSeg(r, c); err != nil {
				return err
			}
		case segInner:
			entries, err := readInnerSeg(r, interner)
			if err != nil {
				return err
			}
			innerEntries = entries
		case segBytecode:
			if err := readBytecodeSeg(r, c); err != nil {
				return err
			}
		default:
			return errors.NewIOError("chunk file contains an unknown segment kind", nil)
		}
	}

	if len(innerEntries) != len(functionSlots) {
		return errors.NewIOError("chunk file inner-function count does not match constant-pool placeholders", nil)
	}
	for i, slot := range functionSlots {
		c.Constants[slot] = value.FromObj(innerEntries[i].fn)
	}
	return nil
}

type innerFuncEntry struct {
	idx int
	fn  *object.Function
}

func readConstantsSeg(r *bufio.Reader, c *chunk.Chunk, interner *intern.Table) ([]int, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	var functionSlots []int
	for i := uint32(0); i < n; i++ {
		tag, err := readByte(r)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		switch tag {
		case constNumber:
			bits, err := readU64(r)
			if err != nil {
				return nil, wrapReadErr(err)
			}
			c.AddConstant(value.Number(math.Float64frombits(bits)))
		case constString:
			s, err := readZString(r)
			if err != nil {
				return nil, wrapReadErr(err)
			}
			str, _ := interner.Intern(s)
			c.AddConstant(value.FromObj(str))
		case constFunction:
			functionSlots = append(functionSlots, c.AddConstant(value.Null()))
		default:
			return nil, errors.NewIOError("chunk file contains an unknown constant kind", nil)
		}
	}
	return functionSlots, nil
}

func readLineInfoSeg(r *bufio.Reader, c *chunk.Chunk) error {
	n, err := readU32(r)
	if err != nil {
		return wrapReadErr(err)
	}
	for i := uint32(0); i < n; i++ {
		line, err := readU32(r)
		if err != nil {
			return wrapReadErr(err)
		}
		lastOffset, err := readU32(r)
		if err != nil {
			return wrapReadErr(err)
		}
		c.AppendLineRun(int(line), int(lastOffset))
	}
	return nil
}

func readInnerSeg(r *bufio.Reader, interner *intern.Table) ([]innerFuncEntry, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, wrapReadErr(err)
	}
	entries := make([]innerFuncEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		idx, err := readU32(r)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		name, err := readZString(r)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		arity, err := readU32(r)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		upvc, err := readU32(r)
		if err != nil {
			return nil, wrapReadErr(err)
		}
		fn := object.NewFunction()
		if len(name) > 0 {
			fn.Name, _ = interner.Intern(name)
		}
		fn.Arity = int(arity)
		fn.UpvalueCount = int(upvc)
		if err := readChunkInto(r, fn.Chunk, interner); err != nil {
			return nil, err
		}
		entries = append(entries, innerFuncEntry{idx: int(idx), fn: fn})
	}
	return entries, nil
}

func readBytecodeSeg(r *bufio.Reader, c *chunk.Chunk) error {
	n, err := readU32(r)
	if err != nil {
		return wrapReadErr(err)
	}
	code := make([]byte, n)
	if _, err := io.ReadFull(r, code); err != nil {
		return wrapReadErr(err)
	}
	c.Code = code
	return nil
}

func readByte(r *bufio.Reader) (byte, error) { return r.ReadByte() }

func readU32(r *bufio.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readU64(r *bufio.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func readZString(r *bufio.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func wrapReadErr(err error) error {
	if err == nil {
		return nil
	}
	return errors.NewIOError("failed reading chunk file", err)
}
