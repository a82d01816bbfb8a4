package collab

import "errors"

// Errors returned by collaboration operations. All of them are terminal and
// user-visible; none is retryable.
var (
	// ErrInvalidDeadline is returned when a request's deadline lies before
	// the day it is created.
	ErrInvalidDeadline = errors.New("deadline must not be in the past")

	// ErrPermissionDenied is returned when the caller is not allowed to
	// perform the operation on the resource.
	ErrPermissionDenied = errors.New("you don't have permission to perform this action")

	// ErrDuplicateOffer is returned when a student offers twice on the same
	// request.
	ErrDuplicateOffer = errors.New("student has already offered on this request")

	// ErrExpired is returned when the resource's deadline has passed.
	ErrExpired = errors.New("the deadline has passed")

	// ErrTitleRequired is returned when a request is created without a title.
	ErrTitleRequired = errors.New("title is required")

	// ErrTitleTooLong is returned when a request's title exceeds
	// MaxTitleLength characters.
	ErrTitleTooLong = errors.New("title is too long")
)
