package v1

import "errors"

var (
	ErrSourceCtx    = errors.New("source registration missing in context")
	ErrPatchCtx     = errors.New("interval patch missing in context")
	ErrNameJSON     = errors.New("name is required")
	ErrIntervalJSON = errors.New("interval must be a positive number of seconds")
	ErrConfigJSON   = errors.New("configData is required")
	ErrContentType  = errors.New("Content-Type must be application/json")
)
