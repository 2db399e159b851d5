// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
	"strings"
)

// Bake errors. A *BakeError matches the sentinel of its kind with errors.Is.
var (
	// ErrCycleDetected is returned when the passes cannot be ordered.
	ErrCycleDetected = errors.New("framegraph: cycle detected")

	// ErrAttachmentSizeMismatch is returned when the attachments a pass
	// writes disagree on dimensions.
	ErrAttachmentSizeMismatch = errors.New("framegraph: attachment size mismatch")

	// ErrResourceCreation is returned when the device or a cache fails to
	// create a texture, pipeline or render target.
	ErrResourceCreation = errors.New("framegraph: resource creation failed")

	// ErrMultipleWriters is returned when two passes write the same
	// attachment under WriterPolicyExclusive.
	ErrMultipleWriters = errors.New("framegraph: attachment has multiple writers")

	// ErrUnknownAttachment is returned when an attachment id was never registered.
	ErrUnknownAttachment = errors.New("framegraph: unknown attachment")

	// ErrDuplicateWrite is returned when a pass binds one attachment to
	// more than one of its color or depth slots.
	ErrDuplicateWrite = errors.New("framegraph: attachment written twice by one pass")
)

// Execute errors.
var (
	// ErrNotBaked is returned by Execute when the graph changed since the
	// last successful Bake, or was never baked.
	ErrNotBaked = errors.New("framegraph: graph is not baked")

	// ErrNeedsRebuild is returned by Execute when presentation resources
	// are gone. The caller should recreate the swapchain/device, update the
	// affected attachments and Bake again.
	ErrNeedsRebuild = errors.New("framegraph: needs rebuild")

	// ErrDeviceLost is reported by backends when the GPU device is lost.
	ErrDeviceLost = errors.New("framegraph: GPU device lost")

	// ErrSurfaceOutdated is reported by backends when the presentation
	// surface no longer matches the window.
	ErrSurfaceOutdated = errors.New("framegraph: surface outdated")
)

// BakeErrorKind classifies a Bake failure.
type BakeErrorKind int

const (
	BakeErrorCycleDetected BakeErrorKind = iota + 1
	BakeErrorAttachmentSizeMismatch
	BakeErrorResourceCreation
	BakeErrorMultipleWriters
	BakeErrorUnknownAttachment
	BakeErrorDuplicateWrite
)

// String returns the kind name.
func (k BakeErrorKind) String() string {
	switch k {
	case BakeErrorCycleDetected:
		return "CycleDetected"
	case BakeErrorAttachmentSizeMismatch:
		return "AttachmentSizeMismatch"
	case BakeErrorResourceCreation:
		return "ResourceCreation"
	case BakeErrorMultipleWriters:
		return "MultipleWriters"
	case BakeErrorUnknownAttachment:
		return "UnknownAttachment"
	case BakeErrorDuplicateWrite:
		return "DuplicateWrite"
	default:
		return fmt.Sprintf("BakeErrorKind(%d)", int(k))
	}
}

func (k BakeErrorKind) sentinel() error {
	switch k {
	case BakeErrorCycleDetected:
		return ErrCycleDetected
	case BakeErrorAttachmentSizeMismatch:
		return ErrAttachmentSizeMismatch
	case BakeErrorResourceCreation:
		return ErrResourceCreation
	case BakeErrorMultipleWriters:
		return ErrMultipleWriters
	case BakeErrorUnknownAttachment:
		return ErrUnknownAttachment
	case BakeErrorDuplicateWrite:
		return ErrDuplicateWrite
	default:
		return nil
	}
}

// BakeError describes why Bake failed.
type BakeError struct {
	Kind BakeErrorKind

	// Pass is the pass being processed, empty when the failure is not
	// specific to one pass.
	Pass string

	// Attachment is the attachment involved, InvalidAttachment if none.
	Attachment AttachmentID

	// Passes lists the passes left unordered by a cycle.
	Passes []string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *BakeError) Error() string {
	var b strings.Builder
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString("framegraph: bake failed")
	}
	if e.Pass != "" {
		fmt.Fprintf(&b, ": pass %q", e.Pass)
	}
	if e.Attachment.Valid() {
		fmt.Fprintf(&b, ": attachment %d", e.Attachment)
	}
	if len(e.Passes) > 0 {
		fmt.Fprintf(&b, ": involving %s", strings.Join(e.Passes, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *BakeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the error's kind.
func (e *BakeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
