package protocol

import (
	"fmt"
	"strings"
)

// Describe renders a frame payload as human-readable text, one line for the
// frame and one indented line per command or resync entry. It never fails:
// decoding problems are reported inline. Intended for debug logs and for
// the inspect command.
func Describe(payload []byte) string {
	var b strings.Builder

	h, err := HeaderOf(payload)
	if err != nil {
		fmt.Fprintf(&b, "invalid frame: %v\n", err)
		return b.String()
	}

	switch h {
	case HeaderUpdate:
		u, err := DecodeUpdate(payload)
		if u == nil {
			fmt.Fprintf(&b, "Update\n  error: %v\n", err)
			return b.String()
		}
		fmt.Fprintf(&b, "Update level=%q commands=%d\n", u.Level, len(u.Commands))
		for _, c := range u.Commands {
			fmt.Fprintf(&b, "  %s\n", c)
		}
		if err != nil {
			fmt.Fprintf(&b, "  error: %v\n", err)
		}

	case HeaderResync:
		if IsResyncRequest(payload) {
			b.WriteString("Resync request\n")
			return b.String()
		}
		entries, err := DecodeResync(payload)
		fmt.Fprintf(&b, "Resync entries=%d\n", len(entries))
		for _, re := range entries {
			fmt.Fprintf(&b, "  %q %s %q (%d bytes)\n", re.Name, re.Origin, re.Class, len(re.Attributes))
		}
		if err != nil {
			fmt.Fprintf(&b, "  error: %v\n", err)
		}

	case HeaderExit:
		b.WriteString("Exit\n")
	}

	return b.String()
}

// DescribeStream splits a raw byte stream into frames and describes each in
// order. A trailing partial frame is reported with its buffered size.
func DescribeStream(stream []byte) string {
	var b strings.Builder

	frames, consumed, err := SplitFrames(stream)
	for i, f := range frames {
		fmt.Fprintf(&b, "#%d (%d bytes) %s", i, len(f), Describe(f))
	}
	if err != nil {
		fmt.Fprintf(&b, "stream error at offset %d: %v\n", consumed, err)
	} else if rest := len(stream) - consumed; rest > 0 {
		fmt.Fprintf(&b, "partial frame: %d bytes buffered\n", rest)
	}

	return b.String()
}
