// Package table implements the open-addressed hash table of spec.md
// §2.4: linear probing, power-of-two capacity, tombstone deletion. Keys
// are interned strings; package table only requires that a key know its
// own bytes and hash, so package object's String type satisfies Key
// structurally without table importing object (which would cycle back,
// since object.Class and object.Instance each hold a *table.Table).
package table

import "github.com/FrederikTobner/cellox/internal/value"

// Key is anything hashable by content the way interned strings are.
// object.String implements this with no explicit declaration needed.
type Key interface {
	Bytes() []byte
	Hash() uint32
}

type entry struct {
	key      Key
	value    value.Value
	occupied bool
	tombstone bool
}

// Table is an open-addressed hash table with linear probing and
// tombstone deletion, capacity always a power of two, growing 2× (floor
// 8) once the load factor exceeds 3/4 — spec.md §4.4's "hash tables grow
// by 2× (floor 8)".
type Table struct {
	entries []entry
	count   int // live entries plus tombstones
	live    int // occupied, excluding tombstones
}

const (
	minCapacity = 8
	maxLoad     = 0.75
)

// New returns an empty table.
func New() *Table { return &Table{} }

// Len reports the number of live (non-tombstone) entries.
func (t *Table) Len() int { return t.live }

// Get looks up key, reporting whether it was found.
func (t *Table) Get(key Key) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Null(), false
	}
	e := t.find(key)
	if e == nil || !e.occupied || e.tombstone {
		return value.Null(), false
	}
	return e.value, true
}

// Set inserts or overwrites key's value, returning true if key was not
// present before (whether it landed in an empty slot or reused a
// tombstone) and false if an existing entry was overwritten.
func (t *Table) Set(key Key, v value.Value) bool {
	if t.count+1 > int(float64(len(t.entries))*maxLoad) {
		t.grow()
	}
	e := t.find(key)
	isNew := !e.occupied
	if isNew && !e.tombstone {
		t.count++
	}
	if isNew || e.tombstone {
		t.live++
	}
	e.key = key
	e.value = v
	e.occupied = true
	e.tombstone = false
	return isNew
}

// Delete tombstones key's entry if present.
func (t *Table) Delete(key Key) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.find(key)
	if e == nil || !e.occupied || e.tombstone {
		return false
	}
	e.occupied = false
	e.tombstone = true
	e.key = nil
	t.live--
	return true
}

// FindByBytes probes for a key matching bytes/hash content without the
// caller first having to allocate a Key — used by the VM's string
// interner, which must check "have I already interned this byte
// sequence?" before it has an ObjString to use as a Key at all.
func (t *Table) FindByBytes(bytes []byte, hash uint32) (Key, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	mask := uint32(len(t.entries) - 1)
	idx := hash & mask
	for {
		e := &t.entries[idx]
		if !e.occupied {
			if !e.tombstone {
				return nil, false
			}
		} else if e.key.Hash() == hash && bytesEqual(e.key.Bytes(), bytes) {
			return e.key, true
		}
		idx = (idx + 1) & mask
	}
}

// ForEach visits every live entry. The callback must not mutate the
// table.
func (t *Table) ForEach(fn func(Key, value.Value)) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.occupied && !e.tombstone {
			fn(e.key, e.value)
		}
	}
}

// RemoveIf deletes every live entry whose key matches pred — used by the
// garbage collector's weak-root pass over the string-intern table
// (spec.md §4.7: "remove entries whose key is unmarked").
func (t *Table) RemoveIf(pred func(Key) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.occupied && !e.tombstone && pred(e.key) {
			e.occupied = false
			e.tombstone = true
			e.key = nil
			t.live--
		}
	}
}

func (t *Table) find(key Key) *entry {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	hash := key.Hash()
	idx := hash & mask
	var firstTombstone *entry
	for {
		e := &t.entries[idx]
		if !e.occupied {
			if !e.tombstone {
				if firstTombstone != nil {
					return firstTombstone
				}
				return e
			}
			if firstTombstone == nil {
				firstTombstone = e
			}
		} else if e.key.Hash() == hash && bytesEqual(e.key.Bytes(), key.Bytes()) {
			return e
		}
		idx = (idx + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := minCapacity
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	t.live = 0
	for _, e := range old {
		if e.occupied && !e.tombstone {
			dst := t.find(e.key)
			dst.key = e.key
			dst.value = e.value
			dst.occupied = true
			t.count++
			t.live++
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
