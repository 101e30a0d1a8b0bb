package vm

import (
	"github.com/dustin/go-humanize"

	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Approximate per-kind byte costs for the bytes_allocated metric
// (spec.md §4.7). These are not exact struct sizes — the collector is a
// logical budget tracker layered over Go's own memory management, not a
// real allocator, so a stable approximation is enough to drive the
// grow-by-2x trigger spec.md describes.
const (
	baseObjSize = 32
)

func objSizeString(s *object.String) int      { return baseObjSize + len(s.Chars) }
func objSizeFunction(f *object.Function) int  { return baseObjSize + 16*len(f.Chunk.Constants) }
func objSizeClosure(c *object.Closure) int    { return baseObjSize + 8*len(c.Upvalues) }
func objSizeUpvalue() int                     { return baseObjSize }
func objSizeNative() int                      { return baseObjSize }
func objSizeClass() int                       { return baseObjSize }
func objSizeInstance() int                    { return baseObjSize }
func objSizeBoundMethod() int                 { return baseObjSize }
func objSizeArray(a *object.Array) int         { return baseObjSize + 16*len(a.Elements) }

// linkObject threads obj onto the object list and charges size against
// bytes_allocated, then checks whether a collection is due. Callers that
// create a new object which isn't immediately consumed must push it
// onto the value stack *before* calling linkObject (spec.md §4.7's write
// barrier: "push it onto the value stack first, then link it"), so that
// if charging this allocation triggers a collection, the new object is
// already a stack root and survives.
func (vm *VM) linkObject(obj object.Traceable, size int) {
	obj.SetObjSize(size)
	obj.SetNext(vm.objects)
	vm.objects = obj
	vm.bytesAllocated += size
	vm.maybeCollect()
}

func (vm *VM) maybeCollect() {
	if vm.gcStress || vm.bytesAllocated > vm.nextGC {
		vm.collect()
	}
}

// registerCompiledObjects links every object already reachable from fn
// (itself, nested function constants, and their interned name/string
// constants) onto the object list, without triggering a collection —
// they exist before the VM's collector does, so there is nothing yet to
// collect them against. This keeps the invariant that every live Cellox
// object is reachable from vm.objects for sweep to consider, even ones
// allocated by the compiler or the chunk-file loader.
func (vm *VM) registerCompiledObjects(fn *object.Function) {
	seen := map[object.Traceable]bool{}
	var walk func(f *object.Function)
	walk = func(f *object.Function) {
		if f == nil || seen[f] {
			return
		}
		seen[f] = true
		f.SetObjSize(objSizeFunction(f))
		f.SetNext(vm.objects)
		vm.objects = f
		vm.bytesAllocated += f.ObjSize()

		if f.Name != nil && !seen[f.Name] {
			seen[f.Name] = true
			f.Name.SetObjSize(objSizeString(f.Name))
			f.Name.SetNext(vm.objects)
			vm.objects = f.Name
			vm.bytesAllocated += f.Name.ObjSize()
		}
		for _, c := range f.Chunk.Constants {
			if !c.IsObj() {
				continue
			}
			switch o := c.AsObj().(type) {
			case *object.String:
				// A nonzero size means linkObject already put this
				// interned string on the list (e.g. "init", a native's
				// name, or an identifier from an earlier REPL line).
				if !seen[o] && o.ObjSize() == 0 {
					seen[o] = true
					o.SetObjSize(objSizeString(o))
					o.SetNext(vm.objects)
					vm.objects = o
					vm.bytesAllocated += o.ObjSize()
				}
			case *object.Function:
				walk(o)
			}
		}
	}
	walk(fn)
}

func (vm *VM) markValue(v value.Value) {
	if v.IsObj() {
		vm.markObject(v.AsObj())
	}
}

func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	t, ok := o.(object.Traceable)
	if !ok || t.IsMarked() {
		return
	}
	t.SetMarked(true)
	vm.grayStack = append(vm.grayStack, t)
}

// collect runs one full mark-and-sweep cycle (spec.md §4.7).
func (vm *VM) collect() {
	before := vm.bytesAllocated
	vm.markRoots()
	vm.traceReferences()
	vm.interner.RemoveUnmarked(func(s *object.String) bool { return s.IsMarked() })
	freed := vm.sweep()
	vm.nextGC = vm.bytesAllocated * 2
	if vm.nextGC < initialNextGC {
		vm.nextGC = initialNextGC
	}
	if vm.gcLogging && vm.tracer != nil {
		vm.tracer.Logf("gc: collected %d objects, %s -> %s, next at %s",
			freed,
			humanize.Bytes(uint64(before)),
			humanize.Bytes(uint64(vm.bytesAllocated)),
			humanize.Bytes(uint64(vm.nextGC)))
	}
}

// markRoots marks every root spec.md §4.7 names, except "every function
// currently being built by the compiler stack": this VM's collector
// never runs while a compilation is in progress (Compile fully finishes,
// handing back a complete function, before Run ever touches the GC), so
// there is no live compiler frame stack to mark — documented as an
// intentional simplification in DESIGN.md.
func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.globals.ForEach(func(_ table.Key, v value.Value) {
		vm.markValue(v)
	})
	vm.markObject(vm.initString)
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		n := len(vm.grayStack) - 1
		obj := vm.grayStack[n]
		vm.grayStack = vm.grayStack[:n]
		vm.blacken(obj)
	}
}

// blacken marks every value obj itself references, per the per-kind
// rules of spec.md §4.7.
func (vm *VM) blacken(obj object.Traceable) {
	switch o := obj.(type) {
	case *object.String, *object.Native:
		// no referents
	case *object.Function:
		if o.Name != nil {
			vm.markObject(o.Name)
		}
		for _, c := range o.Chunk.Constants {
			vm.markValue(c)
		}
	case *object.Closure:
		vm.markObject(o.Function)
		for _, uv := range o.Upvalues {
			if uv != nil {
				vm.markObject(uv)
			}
		}
	case *object.Upvalue:
		vm.markValue(o.Get())
	case *object.Class:
		vm.markObject(o.Name)
		o.Methods.ForEach(func(_ table.Key, v value.Value) {
			vm.markValue(v)
		})
	case *object.Instance:
		vm.markObject(o.Class)
		o.Fields.ForEach(func(_ table.Key, v value.Value) {
			vm.markValue(v)
		})
	case *object.BoundMethod:
		vm.markValue(o.Receiver)
		vm.markObject(o.Method)
	case *object.Array:
		for _, e := range o.Elements {
			vm.markValue(e)
		}
	}
}

// sweep walks the object list freeing unmarked objects and clearing the
// mark bit on survivors, returning the number freed.
func (vm *VM) sweep() int {
	var prev object.Traceable
	obj := vm.objects
	freed := 0
	for obj != nil {
		next := nextTraceable(obj)
		if obj.IsMarked() {
			obj.SetMarked(false)
			prev = obj
		} else {
			if prev == nil {
				vm.objects = next
			} else {
				prev.SetNext(next)
			}
			vm.bytesAllocated -= obj.ObjSize()
			freed++
		}
		obj = next
	}
	return freed
}

func nextTraceable(o object.Traceable) object.Traceable {
	n := o.NextObj()
	if n == nil {
		return nil
	}
	return n.(object.Traceable)
}
