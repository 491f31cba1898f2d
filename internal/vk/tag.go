// Package vk defines the type-erased object model the replay engine
// walks: tags, opaque driver handles, the tagged CreateInfo variant, and
// the Driver collaborator interface. It has no dependency on any other
// internal package — every other package built on top of the replay
// engine imports vk, never the reverse.
package vk

import "fmt"

// Tag identifies the kind of database entry / Vulkan object. Entries are
// ordered by dependency depth: a tag never depends on a later tag.
type Tag uint8

const (
	TagApplicationInfo Tag = iota
	TagSampler
	TagDescriptorSetLayout
	TagPipelineLayout
	TagShaderModule
	TagRenderPass
	TagGraphicsPipeline
	TagComputePipeline
	TagRayTracingPipeline
	TagApplicationBlobLink
)

// tagNames is indexed by Tag; keep in sync with the const block above.
var tagNames = [...]string{
	"application_info",
	"sampler",
	"descriptor_set_layout",
	"pipeline_layout",
	"shader_module",
	"render_pass",
	"graphics_pipeline",
	"compute_pipeline",
	"raytracing_pipeline",
	"application_blob_link",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown_tag"
}

// Valid reports whether t is one of the ten known tags.
func (t Tag) Valid() bool {
	return t <= TagApplicationBlobLink
}

// IsRoot reports whether entries of this tag are root pipelines — the
// only tags a work dispatcher chunks across worker threads.
func (t Tag) IsRoot() bool {
	switch t {
	case TagGraphicsPipeline, TagComputePipeline, TagRayTracingPipeline:
		return true
	default:
		return false
	}
}

// IsResourceProducing reports whether a created entry of this tag owns a
// live driver Handle. application_info and application_blob_link are
// metadata-only: they reach the created state (or, for blob_link, never
// exist in the store at all) without ever owning a handle.
func (t Tag) IsResourceProducing() bool {
	return t != TagApplicationInfo && t != TagApplicationBlobLink
}

// MarshalText renders t as its name, so a map keyed by Tag (e.g.
// Summary.PerTag) serializes to JSON with readable keys instead of
// small integers.
func (t Tag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is MarshalText's inverse, for round-tripping a JSON
// report back into a Tag-keyed map.
func (t *Tag) UnmarshalText(text []byte) error {
	for i, name := range tagNames {
		if name == string(text) {
			*t = Tag(i)
			return nil
		}
	}
	return fmt.Errorf("vk: unknown tag name %q", text)
}
