// Package parser turns a decompressed database payload into a
// vk.CreateInfo plus the list of dependencies the walker must resolve
// before that CreateInfo can be handed to the driver.
//
// The real fossilize wire format is a packed binary encoding of each
// Vulkan CreateInfo struct; reproducing it byte-for-byte is out of
// scope here (see the top-level design notes). DefaultRegistry instead
// decodes a JSON stand-in with the same shape — one object per tag,
// dependencies expressed as hex-encoded hash strings rather than
// pointers — so every other component (state machine, walker,
// dispatcher, driver) exercises the real dependency-resolution and
// lifecycle machinery end to end. Every payload also carries a small
// self-describing envelope ahead of its tag-specific fields: the wire
// format version it was written with and the entry's own content hash,
// which the walker checks against what it already expected before
// trusting the rest of the result.
package parser

import (
	"encoding/json"
	"fmt"

	"github.com/vkreplay/vkreplay/internal/vk"
)

// Parser turns one entry's raw decompressed payload into a CreateInfo,
// its outgoing dependency edges, and the version and content hash the
// payload itself reports.
type Parser interface {
	Parse(tag vk.Tag, payload []byte) (info vk.CreateInfo, deps []vk.Dependency, version uint32, hash uint64, err error)
}

// Func adapts a plain function to Parser.
type Func func(tag vk.Tag, payload []byte) (vk.CreateInfo, []vk.Dependency, uint32, uint64, error)

func (f Func) Parse(tag vk.Tag, payload []byte) (vk.CreateInfo, []vk.Dependency, uint32, uint64, error) {
	return f(tag, payload)
}

// Registry dispatches Parse calls to a per-tag decode function. It
// implements Parser itself, so a Registry can be passed anywhere a
// Parser is expected.
type Registry struct {
	decoders map[vk.Tag]func([]byte) (vk.CreateInfo, []vk.Dependency, error)
}

// NewRegistry builds an empty Registry. Use DefaultRegistry for one
// pre-populated with a decoder for every tag this engine knows.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[vk.Tag]func([]byte) (vk.CreateInfo, []vk.Dependency, error))}
}

// Register installs decode as the decoder for tag, replacing any
// previous one. Exposed so tests can swap in a decoder that returns a
// canned CreateInfo without constructing real JSON payloads.
func (r *Registry) Register(tag vk.Tag, decode func([]byte) (vk.CreateInfo, []vk.Dependency, error)) {
	r.decoders[tag] = decode
}

// envelope is the common header every record's JSON payload carries:
// "version" and "hash", independent of however each tag encodes the
// rest of its fields. hash is absent from application_info payloads,
// which have no dependency-graph identity to check.
type envelope struct {
	Version uint32 `json:"version"`
	Hash    string `json:"hash"`
}

// Parse implements Parser.
func (r *Registry) Parse(tag vk.Tag, payload []byte) (vk.CreateInfo, []vk.Dependency, uint32, uint64, error) {
	decode, ok := r.decoders[tag]
	if !ok {
		return nil, nil, 0, 0, fmt.Errorf("parser: no decoder registered for tag %s", tag)
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, nil, 0, 0, fmt.Errorf("parser: decoding %s envelope: %w", tag, err)
	}
	var hash uint64
	if env.Hash != "" {
		if _, err := fmt.Sscanf(env.Hash, "%x", &hash); err != nil {
			return nil, nil, 0, 0, fmt.Errorf("parser: decoding %s envelope: malformed hash %q: %w", tag, env.Hash, err)
		}
	}

	info, deps, err := decode(payload)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("parser: decoding %s payload: %w", tag, err)
	}
	return info, deps, env.Version, hash, nil
}
