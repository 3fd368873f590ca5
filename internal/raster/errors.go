package raster

import "fmt"

// DecodeError indicates the source image bytes could not be read. It is
// fatal to the job it occurred in and is surfaced to the caller.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode image: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError indicates a transform stage could not produce a pixel
// buffer. Fatal to the job it occurred in.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("render %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("render %s failed", e.Stage)
}

func (e *RenderError) Unwrap() error { return e.Err }
