// Package table implements the open-addressed hash table mire uses for both
// the VM's globals table and the garbage collector's interned-string set.
// It is grounded directly on _examples/original_source/lox-c/table.c:
// linear probing, tombstones, a 0.75 load factor and doubling-from-8
// growth.
package table

import "github.com/hearthlang/mire/lang/value"

// An entry is a single slot. used is false for a slot that was never
// written; tomb marks a deleted entry kept so probing does not terminate
// prematurely past it (key/val are meaningless on a tombstone).
type entry struct {
	key   value.Value
	val   value.Value
	used  bool // false => truly empty slot, never written
	tomb  bool // true => tombstone (key/val are meaningless)
}

const maxLoad = 0.75

// Table is an open-addressed hash table keyed by value.Value.
type Table struct {
	count    int // live entries + tombstones
	entries  []entry
}

// Len returns the number of live (non-tombstone) entries.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.used && !e.tomb {
			n++
		}
	}
	return n
}

func (t *Table) findEntry(entries []entry, key value.Value) int {
	capacity := len(entries)
	idx := int(value.Hash(key) % uint64(capacity))
	var tombstone = -1
	for {
		e := &entries[idx]
		if !e.used {
			if tombstone != -1 {
				return tombstone
			}
			return idx
		} else if e.tomb {
			if tombstone == -1 {
				tombstone = idx
			}
		} else if value.Equal(e.key, key) {
			return idx
		}
		idx = (idx + 1) % capacity
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]entry, capacity)

	t.count = 0
	for _, e := range t.entries {
		if !e.used || e.tomb {
			continue
		}
		idx := t.findEntry(entries, e.key)
		entries[idx] = entry{key: e.key, val: e.val, used: true}
		t.count++
	}
	t.entries = entries
}

// Set inserts or updates key -> val. It returns true if key was not already
// present.
func (t *Table) Set(key, val value.Value) bool {
	if len(t.entries) == 0 || float64(t.count+1) > float64(len(t.entries))*maxLoad {
		capacity := 8
		if len(t.entries) > 0 {
			capacity = len(t.entries) * 2
		}
		t.adjustCapacity(capacity)
	}

	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	isNew := !e.used || e.tomb
	if !e.used {
		t.count++
	}
	*e = entry{key: key, val: val, used: true}
	return isNew
}

// Get looks up key, reporting whether it was found.
func (t *Table) Get(key value.Value) (value.Value, bool) {
	if len(t.entries) == 0 {
		return value.Nil, false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !e.used || e.tomb {
		return value.Nil, false
	}
	return e.val, true
}

// Delete removes key, leaving a tombstone. It reports whether key was
// present.
func (t *Table) Delete(key value.Value) bool {
	if len(t.entries) == 0 {
		return false
	}
	idx := t.findEntry(t.entries, key)
	e := &t.entries[idx]
	if !e.used || e.tomb {
		return false
	}
	*e = entry{used: true, tomb: true}
	return true
}

// FindString looks up an interned string by its raw bytes and precomputed
// hash, scanning entries whose key is a *value.String directly — without
// allocating a candidate object first — exactly mirroring clox's
// tableFindString. It is used by the collector to dedup string allocation.
func (t *Table) FindString(chars string, hash uint32) *value.String {
	if len(t.entries) == 0 {
		return nil
	}
	capacity := len(t.entries)
	idx := int(uint64(hash) % uint64(capacity))
	for {
		e := &t.entries[idx]
		if !e.used {
			return nil
		}
		if !e.tomb && e.key.IsString() {
			s := e.key.AsString()
			if s.Hash == hash && s.Chars == chars {
				return s
			}
		}
		idx = (idx + 1) % capacity
	}
}

// Each calls fn for every live key/value pair. fn must not mutate the
// table.
func (t *Table) Each(fn func(key, val value.Value)) {
	for _, e := range t.entries {
		if e.used && !e.tomb {
			fn(e.key, e.val)
		}
	}
}

// DeleteUnmarked removes every entry whose key is an unmarked
// *value.String (keys of any other kind are left alone), implementing the garbage collector's weak-clear of the intern table.
func (t *Table) DeleteUnmarked() {
	for i := range t.entries {
		e := &t.entries[i]
		if !e.used || e.tomb {
			continue
		}
		if obj := e.key.AsObj(); obj != nil {
			if s, ok := obj.(*value.String); ok && !s.Marked {
				*e = entry{used: true, tomb: true}
			}
		}
	}
}
