package model

import "fmt"

// UploadError reports an upload the service refuses (type, size, missing file).
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload rejected: %s: %v", e.Reason, e.Err)
	}
	return "upload rejected: " + e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

// ModelLoadError reports a model id that does not resolve to a usable model file.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %q: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// InferenceError reports a detector failure on a given image.
type InferenceError struct {
	Model string
	Err   error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference with model %q failed: %v", e.Model, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }
