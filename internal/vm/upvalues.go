package vm

import (
	"unsafe"

	"github.com/FrederikTobner/cellox/internal/object"
	"github.com/FrederikTobner/cellox/internal/value"
)

// slotIndex recovers the stack index a captured upvalue's Location
// points at, via pointer arithmetic against the VM's backing array —
// the same trick original_source's C implementation gets for free from
// raw pointers, reproduced here since Go value.Value pointers into a
// fixed array are just as stable as long as the VM itself never moves.
func (vm *VM) slotIndex(loc *value.Value) int {
	base := unsafe.Pointer(&vm.stack[0])
	off := uintptr(unsafe.Pointer(loc)) - uintptr(base)
	return int(off / unsafe.Sizeof(vm.stack[0]))
}

// captureUpvalue returns the existing open upvalue for stack slot
// absoluteSlot if one exists, or creates and links a new one, keeping
// vm.openUpvalues sorted by descending stack address (spec.md §4.7:
// "the VM's open-upvalue list ... stay sorted by descending stack
// address") so closeUpvalues can stop at the first slot below lastSlot.
func (vm *VM) captureUpvalue(absoluteSlot int) *object.Upvalue {
	var prev *object.Upvalue
	uv := vm.openUpvalues
	for uv != nil && vm.slotIndex(uv.Location) > absoluteSlot {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && vm.slotIndex(uv.Location) == absoluteSlot {
		return uv
	}

	created := object.NewUpvalue(&vm.stack[absoluteSlot])
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	vm.linkObject(created, objSizeUpvalue())
	return created
}

// closeUpvalues closes every open upvalue whose stack slot is at or
// above lastSlot, copying its value off the stack before the frame that
// owns that slot goes away (spec.md §4.8).
func (vm *VM) closeUpvalues(lastSlot int) {
	for vm.openUpvalues != nil && vm.slotIndex(vm.openUpvalues.Location) >= lastSlot {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}
