// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pipeline

import "errors"

// Programmer errors. They report a contract violation by the caller and
// are never retried.
var (
	// ErrLayoutTooLarge is returned by Register when a push-constant block
	// exceeds the device limit.
	ErrLayoutTooLarge = errors.New("pipeline: push-constant layout exceeds device limit")

	// ErrBindingConflict is returned by Register when a bind group declares
	// the same binding twice or an entry that is not exactly one resource.
	ErrBindingConflict = errors.New("pipeline: conflicting bind-group layout entries")

	// ErrInvalidPushConstantLayout is returned by Register for misaligned,
	// overlapping, duplicate or out-of-range push-constant fields.
	ErrInvalidPushConstantLayout = errors.New("pipeline: invalid push-constant layout")

	// ErrPushConstantSizeMismatch is returned when a push-constant block
	// does not have exactly the registered size.
	ErrPushConstantSizeMismatch = errors.New("pipeline: push-constant size mismatch")

	// ErrInvalidPassNesting is returned when a pass is begun inside
	// another, when a draw or dispatch is recorded outside a pass of its
	// kind, or when a recorder is finished with a pass open.
	ErrInvalidPassNesting = errors.New("pipeline: invalid pass nesting")

	// ErrInvalidWork is returned when a Draw is issued for a compute
	// pipeline or Workgroups for a render pipeline.
	ErrInvalidWork = errors.New("pipeline: work does not match pipeline kind")

	// ErrBindGroupCount is returned when the number of bind groups passed
	// to BindAndDispatch differs from the layout.
	ErrBindGroupCount = errors.New("pipeline: wrong number of bind groups")

	// ErrInvalidSpec is returned by Register for incomplete pipeline specs.
	ErrInvalidSpec = errors.New("pipeline: invalid pipeline spec")

	// ErrUnknownPipeline is returned for IDs that are not registered.
	ErrUnknownPipeline = errors.New("pipeline: unknown pipeline")

	// ErrDuplicateName is returned by Register when the name is taken.
	ErrDuplicateName = errors.New("pipeline: duplicate pipeline name")

	// ErrRecorderClosed is returned by a recorder after Finish or Discard.
	ErrRecorderClosed = errors.New("pipeline: recorder finished or discarded")

	// ErrRegistryClosed is returned by a closed registry.
	ErrRegistryClosed = errors.New("pipeline: registry closed")
)
