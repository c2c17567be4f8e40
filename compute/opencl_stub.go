//go:build !opencl

package compute

import "errors"

// NewOpenCL reports that OpenCL support was not compiled in.
func NewOpenCL() (Backend, error) {
	return nil, errors.New("opencl support is not enabled; rebuild with -tags opencl")
}
