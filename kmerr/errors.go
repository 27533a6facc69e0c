// Package kmerr defines the structured error taxonomy shared by every
// streamkm layer: configuration, resource, alignment, device, and
// consistency errors. It is a leaf package (no dependency on
// cache/schedule/pipeline) so every layer can return a *kmerr.Error
// without an import cycle.
package kmerr

import (
	"errors"
	"fmt"
)

// Code is a high-level error category.
type Code string

const (
	// CodeConfiguration: unknown strategy name, out-of-range feature
	// count, incompatible types.
	CodeConfiguration Code = "configuration"
	// CodeResource: pool too small, slot exhaustion, object not
	// registered, invalid device.
	CodeResource Code = "resource"
	// CodeAlignment: tile begin not buffer-size aligned, cross-object
	// range.
	CodeAlignment Code = "alignment"
	// CodeDevice: kernel build failure, kernel launch failure, transfer
	// failure.
	CodeDevice Code = "device"
	// CodeConsistency: binary-runnable tile-count mismatch, read
	// requested on an unlockable slot.
	CodeConsistency Code = "consistency"
)

// Error is a structured streamkm error carrying enough context to log and
// to test against with errors.Is (matching Code) or errors.As.
type Error struct {
	Op       string // operation that failed, e.g. "cache.Get", "scheduler.Run"
	Code     Code
	ObjectID int   // object id involved, 0 if not applicable
	DeviceID int   // device id involved, -1 if not applicable
	Msg      string
	BuildLog string // device build log, or the detail text of a strategy validation failure
	Inner    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		if e.ObjectID != 0 {
			return fmt.Sprintf("streamkm: %s: %s (object=%d)", e.Op, msg, e.ObjectID)
		}
		if e.DeviceID > 0 {
			return fmt.Sprintf("streamkm: %s: %s (device=%d)", e.Op, msg, e.DeviceID)
		}
		return fmt.Sprintf("streamkm: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("streamkm: %s", msg)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is supports errors.Is comparison by Code, so callers can write
// errors.Is(err, kmerr.New("", kmerr.CodeResource, "")) to classify errors
// without matching the exact message.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Code == te.Code
	}
	return false
}

// New constructs a bare *Error.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg, DeviceID: -1}
}

// Wrap attaches op/code context to an existing error without losing it.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner, DeviceID: -1}
}

// WithObject returns a copy of e annotated with an object id.
func (e *Error) WithObject(id int) *Error {
	c := *e
	c.ObjectID = id
	return &c
}

// WithDevice returns a copy of e annotated with a device id.
func (e *Error) WithDevice(id int) *Error {
	c := *e
	c.DeviceID = id
	return &c
}

// WithBuildLog attaches a device kernel build log, so a build failure can
// emit the log for every device in the context before surfacing the error.
func (e *Error) WithBuildLog(log string) *Error {
	c := *e
	c.BuildLog = log
	return &c
}

// IsCode reports whether err (or something it wraps) carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Sentinel errors for common, argument-free conditions; richer failures use
// New/Wrap with context instead.
var (
	ErrObjectIDReserved  = New("cache.RegisterObject", CodeResource, "object id 0 is reserved and invalid")
	ErrObjectUnknown     = New("cache", CodeResource, "object not registered")
	ErrDeviceUnknown     = New("cache", CodeResource, "device not registered")
	ErrPoolTooSmall      = New("cache.RegisterDevice", CodeResource, "pool_size must be > 2*buffer_size")
	ErrSlotExhausted     = New("cache", CodeResource, "no evictable slot available")
	ErrRangeTooLarge     = New("cache", CodeAlignment, "range length exceeds buffer_size")
	ErrMisaligned        = New("cache", CodeAlignment, "begin is not buffer_size aligned within the object")
	ErrCrossObjectRange  = New("cache", CodeAlignment, "range spans multiple objects")
	ErrSlotLocked        = New("cache", CodeResource, "slot is locked and cannot be evicted")
	ErrTileCountMismatch = New("scheduler.Run", CodeConsistency, "binary runnable operands disagree on tile count")
	ErrUnlockableSlot    = New("cache.Read", CodeConsistency, "read requested on an unlockable slot")
	ErrUnsupportedF      = New("strategy.Labeling", CodeConfiguration, "unsupported feature count")
	ErrUnknownStrategy   = New("config", CodeConfiguration, "unknown strategy name")
)
