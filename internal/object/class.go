package object

import (
	"fmt"

	"github.com/FrederikTobner/cellox/internal/table"
	"github.com/FrederikTobner/cellox/internal/value"
)

// Class is a Cellox class: its name and a methods table mapping method
// name to Closure. OP_INHERIT copies a superclass's methods into a
// subclass's table at class-declaration time (spec.md §4.3); there is no
// live link to the superclass afterwards.
type Class struct {
	Header
	Name    *String
	Methods *table.Table
}

// NewClass allocates an empty class named name.
func NewClass(name *String) *Class {
	c := &Class{Name: name, Methods: table.New()}
	c.Kind = value.ObjKindClass
	return c
}

func (c *Class) Equal(other value.Obj) bool { return identityEqual(c, other) }

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name.String()) }

// Instance is a runtime instance of a Class, with a dynamically growing
// fields table (spec.md §3: "Fields are dynamically added on write").
type Instance struct {
	Header
	Class  *Class
	Fields *table.Table
}

// NewInstance allocates an empty instance of class.
func NewInstance(class *Class) *Instance {
	i := &Instance{Class: class, Fields: table.New()}
	i.Kind = value.ObjKindInstance
	return i
}

func (i *Instance) Equal(other value.Obj) bool { return identityEqual(i, other) }

func (i *Instance) String() string { return fmt.Sprintf("<instance of %s>", i.Class.Name.String()) }

// BoundMethod pairs a receiver with one of its class's closures —
// ephemeral, created by OP_GET_PROPERTY when a property name resolves to
// a method rather than a field (spec.md §3).
type BoundMethod struct {
	Header
	Receiver value.Value
	Method   *Closure
}

// NewBoundMethod binds method to receiver.
func NewBoundMethod(receiver value.Value, method *Closure) *BoundMethod {
	b := &BoundMethod{Receiver: receiver, Method: method}
	b.Kind = value.ObjKindBoundMethod
	return b
}

func (b *BoundMethod) Equal(other value.Obj) bool { return identityEqual(b, other) }

func (b *BoundMethod) String() string { return b.Method.String() }
