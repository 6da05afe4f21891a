package delta

import (
	"log/slog"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
	"github.com/mapsync-dev/mapsync/pkg/tracker"
)

// Producer turns local scene changes into commands, one tick at a time.
// Each change is reported exactly once: the tracker is updated as commands
// are emitted.
type Producer struct {
	scene   scene.Scene
	reg     *serializer.Registry
	tracker *tracker.Tracker
	logger  *slog.Logger
}

// NewProducer creates a producer over s. A nil logger uses slog.Default().
func NewProducer(s scene.Scene, reg *serializer.Registry, tr *tracker.Tracker, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{scene: s, reg: reg, tracker: tr, logger: logger}
}

// Produce returns every change since the previous call, in this order:
//
//  1. objects created by remote peers are adopted silently
//  2. Rename for each tracked object whose name changed
//  3. Remove for each tracked object that was destroyed
//  4. Create for each selected object not tracked yet
//  5. Update for each selected object whose attribute bytes differ from
//     the last ones sent
//
// Renames and removals come first so that names they free or introduce are
// settled before any Update refers to them. Unselected objects are watched
// for renames and removals only. The boolean reports whether anything was
// emitted.
func (p *Producer) Produce() ([]protocol.Command, bool) {
	var cmds []protocol.Command

	if n := p.tracker.Adopt(p.scene); n > 0 {
		p.logger.Debug("adopted remote objects", "count", n)
	}

	entries := p.tracker.Entries()

	for _, e := range entries {
		if !e.Object.Alive() {
			continue
		}
		if name := e.Object.Name(); name != e.LastName {
			cmds = append(cmds, protocol.NewRename(e.LastName, name))
			e.LastName = name
		}
	}

	for _, e := range entries {
		if e.Object.Alive() {
			continue
		}
		cmds = append(cmds, protocol.NewRemove(e.LastName))
		p.tracker.Forget(e.Object)
	}

	selected := p.scene.Selected()

	for _, obj := range selected {
		if !obj.Alive() {
			continue
		}
		if _, ok := p.tracker.Lookup(obj); ok {
			continue
		}
		p.tracker.Track(obj)
		origin, class := scene.ClassRef(obj)
		cmds = append(cmds, protocol.NewCreate(obj.Name(), origin, class))
	}

	for _, obj := range selected {
		if !obj.Alive() {
			continue
		}
		data, err := p.reg.Encode(obj)
		if err != nil {
			p.logger.Warn("encode attributes", "object", obj.Name(), "error", err)
			continue
		}
		if !p.tracker.Changed(obj, data) {
			continue
		}
		p.tracker.StoreSnapshot(obj, data)
		cmds = append(cmds, protocol.NewUpdate(obj.Name(), data))
	}

	return cmds, len(cmds) > 0
}

// Frame runs Produce and wraps the result in an Update payload tagged with
// the local level name. It returns a nil payload when nothing changed.
func (p *Producer) Frame() ([]byte, []protocol.Command) {
	cmds, ok := p.Produce()
	if !ok {
		return nil, nil
	}
	return protocol.EncodeUpdate(&protocol.Update{
		Level:    p.scene.LevelName(),
		Commands: cmds,
	}), cmds
}

// Resync builds a full-state Resync payload: one entry per live object with
// its class reference and complete attribute bytes. Objects whose
// attributes fail to encode are left out. Snapshots are not touched.
func (p *Producer) Resync() ([]byte, int) {
	objs := p.scene.Objects()
	entries := make([]protocol.ResyncEntry, 0, len(objs))
	for _, obj := range objs {
		data, err := p.reg.Encode(obj)
		if err != nil {
			p.logger.Warn("encode attributes for resync", "object", obj.Name(), "error", err)
			continue
		}
		origin, class := scene.ClassRef(obj)
		entries = append(entries, protocol.ResyncEntry{
			Name:       obj.Name(),
			Origin:     origin,
			Class:      class,
			Attributes: data,
		})
	}
	return protocol.EncodeResync(entries), len(entries)
}
