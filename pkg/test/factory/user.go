package factory

import (
	fab "github.com/Goldziher/fabricator"
)

// NewUser builds a test instance of any user-shaped struct, with optional
// field overrides.
func NewUser[T any](customData ...map[string]any) T {
	instance := fab.New(*new(T))
	return instance.Build(customData...)
}
