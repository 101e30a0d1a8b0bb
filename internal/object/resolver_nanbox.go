//go:build nanbox

package object

import (
	"unsafe"

	"github.com/FrederikTobner/cellox/internal/value"
)

// init wires the NaN-boxed Value representation's pointer->Obj resolver.
// Every concrete type in this package embeds Header as its first field,
// so a pointer to any of them is also a valid *Header pointer; reading
// Kind back out tells us which concrete pointer type to reconstruct.
func init() {
	value.RegisterObjResolver(func(ptr unsafe.Pointer) value.Obj {
		header := (*Header)(ptr)
		switch header.Kind {
		case value.ObjKindString:
			return (*String)(ptr)
		case value.ObjKindFunction:
			return (*Function)(ptr)
		case value.ObjKindClosure:
			return (*Closure)(ptr)
		case value.ObjKindUpvalue:
			return (*Upvalue)(ptr)
		case value.ObjKindNative:
			return (*Native)(ptr)
		case value.ObjKindClass:
			return (*Class)(ptr)
		case value.ObjKindInstance:
			return (*Instance)(ptr)
		case value.ObjKindBoundMethod:
			return (*BoundMethod)(ptr)
		case value.ObjKindArray:
			return (*Array)(ptr)
		default:
			panic("object: nanbox resolver hit an unknown ObjKind")
		}
	})
}
