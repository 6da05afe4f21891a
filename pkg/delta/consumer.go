package delta

import (
	"log/slog"

	"github.com/mapsync-dev/mapsync/pkg/protocol"
	"github.com/mapsync-dev/mapsync/pkg/scene"
	"github.com/mapsync-dev/mapsync/pkg/serializer"
	"github.com/mapsync-dev/mapsync/pkg/tracker"
)

// ConsumerConfig configures a Consumer.
type ConsumerConfig struct {
	// ApplyRenames applies remote Rename commands to the host scene. When
	// false, Rename commands are ignored entirely and local names stay as
	// they are.
	// Default: false.
	ApplyRenames bool

	// Logger receives per-command debug lines and fault warnings.
	// Default: slog.Default().
	Logger *slog.Logger
}

// Result counts what one frame did to the local scene.
type Result struct {
	// Commands is the number of commands or resync entries decoded.
	Commands int

	Created int
	Removed int
	Renamed int
	Updated int

	// Skipped counts commands whose target was missing or which were
	// no-ops (duplicate delivery, disabled renames).
	Skipped int

	// Failed counts class lookups and attribute decodes that failed.
	Failed int

	// LevelMismatch is set when the frame was discarded because it carries
	// another level's name.
	LevelMismatch bool
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Commands += o.Commands
	r.Created += o.Created
	r.Removed += o.Removed
	r.Renamed += o.Renamed
	r.Updated += o.Updated
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// Consumer applies remote commands to the local scene and keeps the
// tracker in step, so that applied changes are not reported back by the
// local Producer.
type Consumer struct {
	scene   scene.Scene
	reg     *serializer.Registry
	tracker *tracker.Tracker
	cfg     ConsumerConfig
	logger  *slog.Logger
}

// NewConsumer creates a consumer over s.
func NewConsumer(s scene.Scene, reg *serializer.Registry, tr *tracker.Tracker, cfg ConsumerConfig) *Consumer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{scene: s, reg: reg, tracker: tr, cfg: cfg, logger: logger}
}

// ApplyUpdate applies an Update payload.
//
// A frame for another level is discarded without side effects. Otherwise
// commands are applied in stream order. If a command is malformed, the
// commands before it stay applied and the decode error is returned; the
// rest of the frame is dropped.
func (c *Consumer) ApplyUpdate(payload []byte) (Result, error) {
	u, err := protocol.DecodeUpdate(payload)
	if u == nil {
		return Result{}, err
	}

	if level := c.scene.LevelName(); u.Level != level {
		c.logger.Debug("discarding update for other level", "level", u.Level, "local", level)
		return Result{LevelMismatch: true}, err
	}

	res := Result{Commands: len(u.Commands)}
	for i := range u.Commands {
		c.apply(&u.Commands[i], &res)
	}
	return res, err
}

func (c *Consumer) apply(cmd *protocol.Command, res *Result) {
	c.logger.Debug("apply", "command", cmd.String())

	switch cmd.Kind {
	case protocol.CmdRename:
		c.rename(cmd.Name, cmd.NewName, res)
	case protocol.CmdRemove:
		c.remove(cmd.Name, res)
	case protocol.CmdCreate:
		c.create(cmd.Name, cmd.Origin, cmd.Class, res)
	case protocol.CmdUpdate:
		obj := c.scene.FindByName(cmd.Name)
		if obj == nil {
			res.Skipped++
			return
		}
		c.update(obj, cmd.Attributes, res)
	}
}

func (c *Consumer) rename(oldName, newName string, res *Result) {
	if !c.cfg.ApplyRenames {
		res.Skipped++
		return
	}

	var obj scene.Object
	entry, tracked := c.tracker.FindByName(oldName)
	if tracked {
		obj = entry.Object
	} else {
		// Created remotely and not adopted yet.
		obj = c.scene.FindByName(oldName)
	}
	if obj == nil || !obj.Alive() {
		res.Skipped++
		return
	}

	if err := c.scene.Rename(obj, newName); err != nil {
		c.logger.Warn("rename failed", "from", oldName, "to", newName, "error", err)
		res.Failed++
		return
	}
	if tracked {
		entry.LastName = newName
	} else {
		c.tracker.Unexpect(oldName)
		c.tracker.Expect(newName)
	}
	res.Renamed++
}

func (c *Consumer) remove(name string, res *Result) {
	c.tracker.Unexpect(name)
	obj := c.scene.FindByName(name)
	if obj == nil {
		res.Skipped++
		return
	}
	c.tracker.Forget(obj)
	c.scene.Destroy(obj)
	res.Removed++
}

// create spawns an object and returns it, or nil if it was not spawned.
// An object already live under name is left alone and returned.
func (c *Consumer) create(name string, origin protocol.ClassOrigin, class string, res *Result) scene.Object {
	if obj := c.scene.FindByName(name); obj != nil {
		res.Skipped++
		return obj
	}
	obj, err := scene.Spawn(c.scene, origin, class, name)
	if err != nil {
		c.logger.Warn("spawn failed", "object", name, "origin", origin.String(), "class", class, "error", err)
		res.Failed++
		return nil
	}
	c.tracker.Expect(obj.Name())
	res.Created++
	return obj
}

// update applies attribute bytes. Remote changes win over the local
// selection: the object is deselected first. The applied bytes become the
// snapshot so the change is not sent back.
func (c *Consumer) update(obj scene.Object, attrs []byte, res *Result) {
	if c.scene.IsSelected(obj) {
		c.scene.Deselect(obj)
	}
	if err := c.reg.Decode(obj, attrs); err != nil {
		c.logger.Warn("decode attributes", "object", obj.Name(), "error", err)
		res.Failed++
		return
	}
	c.tracker.StoreSnapshot(obj, attrs)
	res.Updated++
}

// ApplyResync applies a full-state Resync payload. Each entry is looked up
// by name and created if missing, then receives its full attributes. No
// rename or remove semantics apply. Entries before a malformed one stay
// applied and the decode error is returned.
func (c *Consumer) ApplyResync(payload []byte) (Result, error) {
	entries, err := protocol.DecodeResync(payload)

	res := Result{Commands: len(entries)}
	for i := range entries {
		re := &entries[i]
		c.logger.Debug("resync", "object", re.Name, "class", re.Class, "bytes", len(re.Attributes))

		obj := c.scene.FindByName(re.Name)
		if obj == nil {
			if obj = c.create(re.Name, re.Origin, re.Class, &res); obj == nil {
				continue
			}
		}
		c.update(obj, re.Attributes, &res)
	}
	return res, err
}
