package object

import (
	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Trace calls mark once for every Value directly referenced by o,
// implementing spec.md §4.7's per-kind tracing rules ("For each greyed
// object, mark all its referents"). Strings and natives have no
// referents and are omitted from the switch.
func Trace(o value.Obj, mark func(value.Value)) {
	switch obj := o.(type) {
	case *Function:
		if obj.Name != nil {
			mark(value.FromObj(obj.Name))
		}
		for _, c := range obj.Chunk.Constants {
			mark(c)
		}
	case *Closure:
		mark(value.FromObj(obj.Function))
		for _, uv := range obj.Upvalues {
			if uv != nil {
				mark(value.FromObj(uv))
			}
		}
	case *Upvalue:
		mark(obj.Get())
	case *Class:
		mark(value.FromObj(obj.Name))
		obj.Methods.ForEach(func(_ table.Key, v value.Value) { mark(v) })
	case *Instance:
		mark(value.FromObj(obj.Class))
		obj.Fields.ForEach(func(_ table.Key, v value.Value) { mark(v) })
	case *BoundMethod:
		mark(obj.Receiver)
		mark(value.FromObj(obj.Method))
	case *Array:
		for _, v := range obj.Elements {
			mark(v)
		}
	}
}
