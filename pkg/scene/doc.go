// Package scene defines the host scene contract consumed by the
// synchronization core, and World, an in-memory implementation used by the
// headless peer and by tests.
//
// The core never special-cases concrete object types. It enumerates objects
// and the selection, spawns by class path or intrinsic class name, and asks
// IsA questions; attribute access goes through the serializer registry.
package scene
