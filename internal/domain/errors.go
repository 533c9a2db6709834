package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the resolution engine
var (
	ErrConfigurationConflict = errors.New("configuration conflict")
	ErrUnknownLayout         = errors.New("unknown layout")
	ErrEmptyMatchSet         = errors.New("no matching hosts")
	ErrCacheCorrupt          = errors.New("inventory cache corrupt")
	ErrBastionConflict       = errors.New("bastion conflict")
	ErrAllSourcesFailed      = errors.New("all inventory sources failed")
	ErrAdapterFetch          = errors.New("inventory source fetch failed")
)

// SourceError is a fetch failure of one inventory source
type SourceError struct {
	Source string
	Kind   SourceKind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is makes every SourceError match ErrAdapterFetch
func (e *SourceError) Is(target error) bool {
	return target == ErrAdapterFetch
}

// Failure converts the error into snapshot metadata
func (e *SourceError) Failure() SourceFailure {
	return SourceFailure{Source: e.Source, Reason: e.Err.Error()}
}

// LayoutError reports a layout name that is not configured
type LayoutError struct {
	Name      string
	Available []string
}

func (e *LayoutError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown layout %q (no layouts configured)", e.Name)
	}
	return fmt.Sprintf("unknown layout %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

func (e *LayoutError) Is(target error) bool {
	return target == ErrUnknownLayout
}

// EmptyMatchError reports queries that resolved to no hosts
type EmptyMatchError struct {
	Queries []string
}

func (e *EmptyMatchError) Error() string {
	return fmt.Sprintf("no matching hosts for %s", strings.Join(e.Queries, ", "))
}

func (e *EmptyMatchError) Is(target error) bool {
	return target == ErrEmptyMatchSet
}
