// Package metadata overlays organisational and per-target fields onto the
// package.json descriptors generated by the bundler.
package metadata

import (
	"fmt"
	"sort"

	"github.com/blockprotocol/tsbuild/internal/descriptor"
	"github.com/rs/zerolog/log"
)

// Patch is an ordered set of descriptor fields to overlay.
type Patch struct {
	fields *descriptor.Object
}

func NewPatch() Patch {
	return Patch{fields: descriptor.NewObject()}
}

// Unique builds a per-target patch from string fields, e.g. {"name": "@scope/pkg"}.
// Keys are sorted so the resulting patch is deterministic.
func Unique(fields map[string]string) Patch {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := NewPatch()
	for _, k := range keys {
		p.fields.Set(k, descriptor.String(fields[k]))
	}
	return p
}

// With returns a copy of p with key set to v.
func (p Patch) With(key string, v descriptor.Value) Patch {
	c := Patch{fields: p.fields.Clone()}
	c.fields.Set(key, v)
	return c
}

func (p Patch) Keys() []string {
	return p.fields.Keys()
}

func (p Patch) Get(key string) (descriptor.Value, bool) {
	return p.fields.Get(key)
}

func (p Patch) Len() int {
	return p.fields.Len()
}

// Collision describes a key present in both the common and the unique patch.
type Collision struct {
	Key    string
	Common descriptor.Value
	Unique descriptor.Value
}

// Combine overlays unique onto common. On a key collision the unique value
// wins; onCollision, if not nil, is called for every such key.
func Combine(common, unique Patch, onCollision func(Collision)) Patch {
	out := Patch{fields: common.fields.Clone()}
	for _, k := range unique.Keys() {
		v, _ := unique.Get(k)
		if cv, ok := common.Get(k); ok && onCollision != nil {
			onCollision(Collision{Key: k, Common: cv, Unique: v})
		}
		out.fields.Set(k, v.Clone())
	}
	return out
}

// Apply returns a copy of obj with every field of p set. Fields of obj that
// are not in p are kept with their original value and position; nothing is
// removed or renamed.
func Apply(obj *descriptor.Object, p Patch) *descriptor.Object {
	out := obj.Clone()
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		out.Set(k, v.Clone())
	}
	return out
}

// Patcher rewrites descriptor files with the common fields and a
// caller-supplied unique patch.
type Patcher struct {
	common Common
}

func NewPatcher(common Common) *Patcher {
	return &Patcher{common: common}
}

// PatchFile reads the descriptor at path, applies the common fields and
// unique on top of them, and writes the result back to path.
// Read and parse errors leave the file untouched.
func (p *Patcher) PatchFile(path string, unique Patch) error {
	obj, err := descriptor.ReadFile(path)
	if err != nil {
		return err
	}
	patch := Combine(p.common.Patch(), unique, func(c Collision) {
		log.Debug().
			Str("path", path).
			Str("key", c.Key).
			Msg("Per-target field overrides common metadata")
	})
	if err := descriptor.WriteFile(path, Apply(obj, patch)); err != nil {
		return fmt.Errorf("patching %s: %w", path, err)
	}
	log.Info().
		Str("path", path).
		Strs("fields", patch.Keys()).
		Msg("Patched package descriptor")
	return nil
}
