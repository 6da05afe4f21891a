// Package protocol implements the MapSync binary wire protocol.
//
// The protocol carries scene changes between editor instances over a plain
// byte stream (TCP, or WebSocket binary messages treated as a stream).
//
// # Wire Format
//
// The stream is a sequence of length-prefixed frames. Several frames may be
// concatenated in one transport write and may arrive split across any number
// of reads; FrameBuffer reassembles them.
//
//	┌───────────────────────────────┬──────────────────────────────┐
//	│ Payload Length                │ Payload                      │
//	│ (int32, little-endian)        │ (length bytes)               │
//	└───────────────────────────────┴──────────────────────────────┘
//
// The first payload byte is the frame header:
//
//   - HeaderUpdate ('e'): level name followed by change commands
//   - HeaderResync ('r'): empty request, or a full-state response
//   - HeaderExit ('x'): session termination
//
// # Encoding
//
//   - Fixed width: int32 and float32, little-endian
//   - Strings: int32 length + bytes
//   - Attribute blobs: int32 length + serializer-defined bytes
//
// # Commands
//
// An Update payload is [header][string level][command]*, where each command
// starts with a tag byte:
//
//	Create ('c'): [string name][byte origin][string class]
//	Remove ('d'): [string name]
//	Rename ('n'): [string oldName][string newName]
//	Update ('u'): [string name][blob attributes]
//
// Objects are identified by name only. Within one frame, renames and
// removals are encoded before the updates that may reuse those names.
//
// # Resync
//
// A Resync response is [header] followed by one entry per live object:
//
//	[string name][byte origin][string class][blob attributes]
//
// Entries are applied as create-if-missing plus a full attribute update.
package protocol
