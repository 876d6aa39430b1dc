// Package service provides business logic services for the dispatch
// storage service.
package service

import "errors"

// Common service errors.
var (
	// ErrCourseIDEmpty indicates an operation was called without a
	// course identifier.
	ErrCourseIDEmpty = errors.New("course ID must not be empty")

	// ErrRemoteBulkDeleteUnsupported indicates a whole-course delete was
	// requested against a remote backend. Remote stores need a key
	// inventory to delete a prefix, which this subsystem does not
	// maintain; only the local backend supports recursive deletion.
	ErrRemoteBulkDeleteUnsupported = errors.New("bulk course-asset delete is not supported on remote storage backends")

	// ErrArchiveUnreadable indicates the course package could not be
	// opened as a zip archive.
	ErrArchiveUnreadable = errors.New("course package is not a readable zip archive")
)
