// Package assets loads model geometry and images from data directories.
package assets

import (
	"errors"
	"fmt"

	"github.com/Faultbox/heightfield/internal/engine/mesh"
	"github.com/Faultbox/heightfield/internal/engine/texture"
)

// ErrNotFound is returned when a path is not present under any data root.
var ErrNotFound = errors.New("asset not found")

// Source provides model geometry and images by path.
type Source interface {
	// LoadModel returns the meshes of a model file in file order.
	LoadModel(path string) ([]mesh.Data, error)
	// LoadImage returns a decoded RGBA8 image.
	LoadImage(path string) (texture.Image, error)
}

// Policy decides what happens when an asset cannot be loaded.
type Policy string

const (
	// PolicyDegrade logs the failure and continues with empty geometry or a
	// blank image.
	PolicyDegrade Policy = "degrade"
	// PolicyStrict reports the failure to the caller.
	PolicyStrict Policy = "strict"
)

// ParsePolicy converts a config value to a Policy. The empty string maps to
// PolicyDegrade.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyDegrade:
		return PolicyDegrade, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown asset policy %q", s)
	}
}
