//go:build !gpu

package cl

// New returns ErrNotBuilt when OpenCL support is not compiled in.
func New() (API, error) {
	return nil, ErrNotBuilt
}
