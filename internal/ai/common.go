package ai

import "errors"

// ApplicationJSON is the MIME type used for structured model output and minification.
const ApplicationJSON = "application/json"

// Package-level errors.
var (
	// ErrModelResponse indicates the model returned no usable response.
	ErrModelResponse = errors.New("model response error")
	// ErrNoJSONObject indicates the response text contained no balanced JSON object.
	ErrNoJSONObject = errors.New("no JSON object in response")
	// ErrMissingField indicates a required field was absent from the decoded response.
	ErrMissingField = errors.New("required field missing")
)
