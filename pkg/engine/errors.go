// Copyright (c) 2026 Tigera, Inc. All rights reserved.
package engine

import (
	"strings"

	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// ErrNoSnapshot is returned by a Holder that has not yet been given a snapshot.
var ErrNoSnapshot = errors.New("no snapshot has been loaded")

// LoadError is returned when a snapshot cannot be built. It carries every problem found with the objects. A store
// that failed to load is never returned.
type LoadError struct {
	Errs field.ErrorList
}

func (e *LoadError) Error() string {
	return "invalid snapshot: " + e.Errs.ToAggregate().Error()
}

// IsLoadError returns true if the error, or the error it wraps, is a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// InvalidQueryError is returned when the query input is invalid. No decision or trace is produced.
type InvalidQueryError struct {
	Reasons []string
}

func (e *InvalidQueryError) Error() string {
	return "invalid query: " + strings.Join(e.Reasons, "; ")
}

// IsInvalidQuery returns true if the error, or the error it wraps, is an InvalidQueryError.
func IsInvalidQuery(err error) bool {
	var iq *InvalidQueryError
	return errors.As(err, &iq)
}

func invalidQuery(reasons ...string) *InvalidQueryError {
	return &InvalidQueryError{Reasons: reasons}
}
