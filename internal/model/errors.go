package model

import "errors"

var (
	// ErrInvalidQuery marks bad pagination arguments.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrNetworkFailure marks a failure to obtain or decode the dataset.
	ErrNetworkFailure = errors.New("network failure")
	// ErrStoreFailure marks a failed read or commit against the record store.
	ErrStoreFailure = errors.New("store failure")
)
