package data

import "errors"

// Error taxonomy for the update engine. Construction-time failures
// (ErrInvalidConfig, a store that cannot be opened) abort provider creation;
// everything else aborts the current run only and is retried on the next tick.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrDownload      = errors.New("download failed")
	ErrIntegrity     = errors.New("content integrity check failed")
	ErrStorage       = errors.New("state store failure")
	ErrFileSystem    = errors.New("filesystem failure")

	// Store-level sentinels.
	ErrNotFound   = errors.New("key not found")
	ErrEmptyKey   = errors.New("key is empty")
	ErrEmptyStore = errors.New("store is empty")

	// Registry sentinels.
	ErrProviderExists   = errors.New("provider already registered")
	ErrProviderNotFound = errors.New("provider not found")
)
