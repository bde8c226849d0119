// Copyright RTPS Go Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ddserror implements the stable error taxonomy of spec.md §7: every
// operation that can fail returns one of these Kinds, wrapped with
// github.com/pkg/errors context rather than a bare string.
package ddserror

import "github.com/pkg/errors"

// Kind is one of the stable DDS return codes of spec.md §7.
type Kind int

const (
	Generic Kind = iota
	Unsupported
	BadParameter
	PreconditionNotMet
	OutOfResources
	NotEnabled
	ImmutablePolicy
	InconsistentPolicy
	AlreadyDeleted
	Timeout
	NoData
	IllegalOperation
)

func (k Kind) String() string {
	switch k {
	case Unsupported:
		return "Unsupported"
	case BadParameter:
		return "BadParameter"
	case PreconditionNotMet:
		return "PreconditionNotMet"
	case OutOfResources:
		return "OutOfResources"
	case NotEnabled:
		return "NotEnabled"
	case ImmutablePolicy:
		return "ImmutablePolicy"
	case InconsistentPolicy:
		return "InconsistentPolicy"
	case AlreadyDeleted:
		return "AlreadyDeleted"
	case Timeout:
		return "Timeout"
	case NoData:
		return "NoData"
	case IllegalOperation:
		return "IllegalOperation"
	default:
		return "Generic"
	}
}

// Code returns the stable integer return code for k, per spec.md §7. These
// values must never be renumbered; they are part of the facade's wire
// contract with callers.
func (k Kind) Code() int { return int(k) }

// ddsError pairs a Kind with a wrapped underlying cause.
type ddsError struct {
	kind Kind
	err  error
}

func (e *ddsError) Error() string { return e.kind.String() + ": " + e.err.Error() }
func (e *ddsError) Cause() error  { return e.err }
func (e *ddsError) Unwrap() error { return e.err }

// New creates an error of the given kind with a message.
func New(kind Kind, msg string) error {
	return &ddsError{kind: kind, err: errors.New(msg)}
}

// Wrap annotates err with a kind and message, or returns nil if err is nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &ddsError{kind: kind, err: errors.Wrap(err, msg)}
}

// KindOf reports the Kind carried by err, or Generic if err doesn't carry
// one (e.g. it originated outside this package).
func KindOf(err error) Kind {
	var de *ddsError
	if errors.As(err, &de) {
		return de.kind
	}
	return Generic
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
