package store

import "github.com/cockroachdb/errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrCategoryNameConflict is returned when creating or renaming a
	// category to a name that already exists.
	ErrCategoryNameConflict = errors.New("store: category name already exists")

	// ErrCategoryNotFound is returned when an expense references a
	// category that does not exist. Distinct from ErrNotFound so callers
	// can report a bad reference (400) rather than a missing entity (404).
	ErrCategoryNotFound = errors.New("store: category not found")

	// ErrInvalidAmount is returned when an expense amount is not strictly
	// positive.
	ErrInvalidAmount = errors.New("store: expense amount must be greater than zero")

	// ErrInvalidDateRange is returned when a period's start date is after
	// its end date.
	ErrInvalidDateRange = errors.New("store: start date must be before end date")

	// ErrInvalidName is returned when a category name is empty or blank.
	ErrInvalidName = errors.New("store: category name cannot be empty")
)
