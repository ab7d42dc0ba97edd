package repository

import "errors"

var (
	// ErrRunNotFound indicates the run record was not found
	ErrRunNotFound = errors.New("run not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
