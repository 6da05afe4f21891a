package config

import (
	"fmt"

	"github.com/mapsync-dev/mapsync/internal/errors"
	"github.com/mapsync-dev/mapsync/pkg/scene"
)

// SceneSeed describes the initial content of an in-memory scene.
type SceneSeed struct {
	// Blueprints are loadable classes registered by asset path.
	Blueprints []BlueprintSeed `yaml:"blueprints,omitempty"`

	// Objects are spawned in order.
	Objects []ObjectSeed `yaml:"objects,omitempty"`
}

// BlueprintSeed registers a loadable class.
type BlueprintSeed struct {
	Path   string `yaml:"path"`
	Parent string `yaml:"parent"`
}

// ObjectSeed describes one object. Exactly one of Class or Path is set.
type ObjectSeed struct {
	Name  string `yaml:"name"`
	Class string `yaml:"class,omitempty"`
	Path  string `yaml:"path,omitempty"`

	Location *[3]float32 `yaml:"location,omitempty"`
	Rotation *[3]float32 `yaml:"rotation,omitempty"`
	Scale    *[3]float32 `yaml:"scale,omitempty"`

	Mesh      string   `yaml:"mesh,omitempty"`
	Materials []string `yaml:"materials,omitempty"`

	Color     *[4]float32 `yaml:"color,omitempty"`
	Intensity *float32    `yaml:"intensity,omitempty"`

	// Selected puts the object in the initial selection, so its state is
	// sent on the first tick.
	Selected bool `yaml:"selected,omitempty"`
}

func (s SceneSeed) validate() error {
	seen := make(map[string]bool, len(s.Objects))
	for i, o := range s.Objects {
		if (o.Class == "") == (o.Path == "") {
			return errors.New(errors.CodeConfigValue).
				WithDetail(fmt.Sprintf("scene.objects[%d]: exactly one of class or path must be set", i))
		}
		if o.Name != "" {
			if seen[o.Name] {
				return errors.New(errors.CodeConfigValue).
					WithDetail(fmt.Sprintf("scene.objects[%d]: duplicate name %q", i, o.Name))
			}
			seen[o.Name] = true
		}
	}
	for i, b := range s.Blueprints {
		if b.Path == "" {
			return errors.New(errors.CodeConfigValue).
				WithDetail(fmt.Sprintf("scene.blueprints[%d]: path is required", i))
		}
	}
	return nil
}

// Apply registers the seed's blueprints in w and spawns its objects.
func (s SceneSeed) Apply(w *scene.World) error {
	for _, b := range s.Blueprints {
		parent := b.Parent
		if parent == "" {
			parent = scene.ClassActor
		}
		if _, err := w.RegisterBlueprint(b.Path, parent); err != nil {
			return fmt.Errorf("config: blueprint %q: %w", b.Path, err)
		}
	}

	for _, o := range s.Objects {
		var (
			obj scene.Object
			err error
		)
		if o.Path != "" {
			obj, err = w.SpawnByPath(o.Path, o.Name)
		} else {
			obj, err = w.SpawnByClassName(o.Class, o.Name)
		}
		if err != nil {
			return fmt.Errorf("config: object %q: %w", o.Name, err)
		}

		a := obj.(*scene.Actor)
		t := a.Transform()
		if o.Location != nil {
			t.Location = scene.Vector{X: o.Location[0], Y: o.Location[1], Z: o.Location[2]}
		}
		if o.Rotation != nil {
			t.Rotation = scene.Rotator{Pitch: o.Rotation[0], Yaw: o.Rotation[1], Roll: o.Rotation[2]}
		}
		if o.Scale != nil {
			t.Scale = scene.Vector{X: o.Scale[0], Y: o.Scale[1], Z: o.Scale[2]}
		}
		a.SetTransform(t)

		if o.Mesh != "" {
			a.SetMesh(o.Mesh)
		}
		for i, m := range o.Materials {
			a.SetMaterial(i, m)
		}
		if o.Color != nil {
			a.SetLightColor(scene.LinearColor{R: o.Color[0], G: o.Color[1], B: o.Color[2], A: o.Color[3]})
		}
		if o.Intensity != nil {
			a.SetIntensity(*o.Intensity)
		}
		if o.Selected {
			w.Select(a)
		}
	}
	return nil
}

// NewWorld creates a World for the configured level and applies the seed.
func (c *Config) NewWorld() (*scene.World, error) {
	w := scene.NewWorld(c.Level)
	if err := c.Scene.Apply(w); err != nil {
		return nil, err
	}
	return w, nil
}
