package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).
var (
	// ErrCourseNotFound indicates the requested course does not exist.
	ErrCourseNotFound = errors.New("course not found")

	// ErrCourseAlreadyExists indicates a course with the same ID exists.
	ErrCourseAlreadyExists = errors.New("course already exists")

	// ErrCourseTitleEmpty indicates a course was created without a title.
	ErrCourseTitleEmpty = errors.New("course title must not be empty")
)
