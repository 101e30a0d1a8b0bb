package object

import "github.com/FrederikTobner/cellox/internal/value"

// String is an interned byte string. Two interned strings with equal
// bytes always share the same *String (spec.md §3 invariant), so
// equality is identity comparison even though Go could compare the bytes
// directly.
type String struct {
	Header
	Chars []byte
	hash  uint32
}

// NewString constructs a *String without interning it — callers that
// want the interning invariant must go through the shared string table
// (internal/intern's Table.Intern), which is the only place allowed to
// hand out *String values that escape into running code.
func NewString(chars []byte) *String {
	s := &String{Chars: chars, hash: fnv1a32(chars)}
	s.Kind = value.ObjKindString
	return s
}

func (s *String) Bytes() []byte { return s.Chars }
func (s *String) Hash() uint32  { return s.hash }
func (s *String) Len() int      { return len(s.Chars) }
func (s *String) String() string {
	return string(s.Chars)
}

func (s *String) Equal(other value.Obj) bool { return identityEqual(s, other) }
