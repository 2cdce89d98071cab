// Package scene stores the objects drawn each frame.
package scene

import (
	"github.com/Faultbox/heightfield/internal/engine/gpu"
	"github.com/Faultbox/heightfield/internal/engine/mesh"
)

// Object is a named group of drawables.
type Object struct {
	Name string
	// TextureName records the source texture path. It is informational and
	// not used for drawing.
	TextureName string
	Meshes      []*mesh.Drawable
}

// NumElements returns the total index count over all meshes.
func (o *Object) NumElements() int {
	n := 0
	for _, m := range o.Meshes {
		n += int(m.NumElements)
	}
	return n
}

// Scene is an ordered, append-only list of objects. Objects are drawn in the
// order they were added.
type Scene struct {
	objects []*Object
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{}
}

// Add appends obj. Nil objects are ignored.
func (s *Scene) Add(obj *Object) {
	if obj == nil {
		return
	}
	s.objects = append(s.objects, obj)
}

// ForEach calls fn for every object in insertion order.
func (s *Scene) ForEach(fn func(*Object)) {
	for _, obj := range s.objects {
		fn(obj)
	}
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.objects)
}

// Find returns the first object with the given name.
func (s *Scene) Find(name string) (*Object, bool) {
	for _, obj := range s.objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return nil, false
}

// Release frees the device resources of every object and empties the scene.
func (s *Scene) Release(res gpu.Resources) {
	for _, obj := range s.objects {
		for _, m := range obj.Meshes {
			m.Release(res)
		}
	}
	s.objects = nil
}
