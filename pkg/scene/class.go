package scene

import "strings"

// Intrinsic class names known to World.
const (
	ClassActor            = "Actor"
	ClassStaticMeshActor  = "StaticMeshActor"
	ClassLight            = "Light"
	ClassPointLight       = "PointLight"
	ClassSpotLight        = "SpotLight"
	ClassDirectionalLight = "DirectionalLight"
)

// ClassInfo is a node in World's class hierarchy.
type ClassInfo struct {
	name   string
	path   string
	parent *ClassInfo
}

// Name returns the class name.
func (c *ClassInfo) Name() string { return c.name }

// Path returns the asset path, empty for intrinsic classes.
func (c *ClassInfo) Path() string { return c.path }

// Loadable reports whether the class was registered by asset path.
func (c *ClassInfo) Loadable() bool { return c.path != "" }

// Parent returns the direct superclass, or nil for a root class.
func (c *ClassInfo) Parent() *ClassInfo { return c.parent }

// Is reports whether c is typeName or derives from it.
func (c *ClassInfo) Is(typeName string) bool {
	for k := c; k != nil; k = k.parent {
		if k.name == typeName {
			return true
		}
	}
	return false
}

// blueprintName derives a class name from an asset path such as
// "/Game/Blueprints/BP_Door.BP_Door_C".
func blueprintName(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && i < len(path)-1 {
		return path[i+1:]
	}
	if i := strings.LastIndexByte(path, '/'); i >= 0 && i < len(path)-1 {
		return path[i+1:]
	}
	return path
}
