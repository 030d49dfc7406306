// Package raster decodes, warps, annotates and encodes the optional source
// image that accompanies a rectification request.
package raster

import "fmt"

// ImageProcessingError wraps a failure in one raster operation.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image %s failed: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }
