// Package tracker remembers, per scene object, the name it had when last
// observed and the attribute bytes last sent for it. The change producer
// diffs live state against this memo; the change consumer keeps it in step
// with remote changes so they are not echoed back.
package tracker

import (
	"bytes"
	"slices"

	"github.com/mapsync-dev/mapsync/pkg/scene"
)

// Entry is one tracked object.
type Entry struct {
	// Object is a non-owning handle into the host scene.
	Object scene.Object

	// LastName is the object's name when it was last observed.
	LastName string
}

// Tracker holds tracked objects in the order they were first noticed, plus
// the attribute snapshot store. Object handles are used as map keys and must
// be comparable.
//
// A Tracker is owned by one session and is not safe for concurrent use.
type Tracker struct {
	entries   []*Entry
	byObject  map[scene.Object]*Entry
	snapshots map[scene.Object][]byte
	expected  map[string]struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		byObject:  make(map[scene.Object]*Entry),
		snapshots: make(map[scene.Object][]byte),
		expected:  make(map[string]struct{}),
	}
}

// Build creates a tracker holding every live object in s under its current
// name. No snapshots are recorded, so each object is sent in full the first
// time it is selected.
func Build(s scene.Scene) *Tracker {
	t := New()
	for _, obj := range s.Objects() {
		t.Track(obj)
	}
	return t
}

// Len returns the number of tracked objects.
func (t *Tracker) Len() int { return len(t.entries) }

// Entries returns the tracked objects in tracking order.
func (t *Tracker) Entries() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Lookup returns the entry for obj.
func (t *Tracker) Lookup(obj scene.Object) (*Entry, bool) {
	e, ok := t.byObject[obj]
	return e, ok
}

// FindByName returns the entry whose LastName is name.
func (t *Tracker) FindByName(name string) (*Entry, bool) {
	for _, e := range t.entries {
		if e.LastName == name {
			return e, true
		}
	}
	return nil, false
}

// Track starts tracking obj under its current name. Tracking an object
// twice returns the existing entry.
func (t *Tracker) Track(obj scene.Object) *Entry {
	if e, ok := t.byObject[obj]; ok {
		return e
	}
	e := &Entry{Object: obj, LastName: obj.Name()}
	t.entries = append(t.entries, e)
	t.byObject[obj] = e
	return e
}

// Forget stops tracking obj and drops its snapshot.
func (t *Tracker) Forget(obj scene.Object) {
	delete(t.snapshots, obj)
	if _, ok := t.byObject[obj]; !ok {
		return
	}
	delete(t.byObject, obj)
	for i, e := range t.entries {
		if e.Object == obj {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			break
		}
	}
}

// Snapshot returns the last attribute bytes recorded for obj.
func (t *Tracker) Snapshot(obj scene.Object) ([]byte, bool) {
	b, ok := t.snapshots[obj]
	return b, ok
}

// StoreSnapshot records data as obj's current attribute bytes. The tracker
// keeps its own copy.
func (t *Tracker) StoreSnapshot(obj scene.Object, data []byte) {
	t.snapshots[obj] = append(make([]byte, 0, len(data)), data...)
}

// Changed reports whether data differs from obj's snapshot, or whether no
// snapshot exists.
func (t *Tracker) Changed(obj scene.Object, data []byte) bool {
	prev, ok := t.snapshots[obj]
	return !ok || !bytes.Equal(prev, data)
}

// Expect marks name as created by a remote peer. The next Adopt call
// tracks the object under that name without reporting it as a local
// creation.
func (t *Tracker) Expect(name string) {
	t.expected[name] = struct{}{}
}

// Unexpect cancels a pending Expect.
func (t *Tracker) Unexpect(name string) {
	delete(t.expected, name)
}

// Pending returns the number of expected names not yet adopted.
func (t *Tracker) Pending() int { return len(t.expected) }

// Adopt tracks every live, untracked object whose name was expected and
// clears the expectation list, in name order. Names that no longer resolve
// are dropped.
// It returns the number of adopted objects.
func (t *Tracker) Adopt(s scene.Scene) int {
	n := 0
	names := make([]string, 0, len(t.expected))
	for name := range t.expected {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		delete(t.expected, name)
		obj := s.FindByName(name)
		if obj == nil || !obj.Alive() {
			continue
		}
		if _, ok := t.byObject[obj]; ok {
			continue
		}
		t.Track(obj)
		n++
	}
	return n
}
