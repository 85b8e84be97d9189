package domain

import "errors"

// ErrNotFound is returned when a slug resolves to no manufacturer or category.
var ErrNotFound = errors.New("not found")
