// Package serializer dispatches scene objects to type-scoped attribute
// codecs.
//
// A Descriptor declares the type it supports and one symmetric routine over
// an Archive. The Registry applies every descriptor whose type the object
// satisfies, ordered by descriptor ID, so layered attributes compose:
//
//	reg, err := serializer.New(world,
//	    serializer.NewFunc("actor.transform", "Actor", serializeTransform),
//	    serializer.NewFunc("light.color", "Light", serializeLight),
//	)
//	data, err := reg.Encode(obj)   // transform bytes, then light bytes
//	err = reg.Decode(other, data)  // same order on the way in
//
// There are no per-field type tags on the wire. Both peers must register
// the same descriptors.
package serializer
