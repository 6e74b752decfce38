package common

import (
	"errors"
	"fmt"
)

var (
	// ErrAttachTooMany is returned when attaching to a point that already holds a component.
	ErrAttachTooMany = errors.New("cannot attach - attach device limit reached")
	// ErrAttachCompNotFound is returned when detaching from an empty point.
	ErrAttachCompNotFound = errors.New("cannot detach - component not found")
)

// AttachPt is a generic component attachment point holding at most one
// component. The zero value is disabled; call SetEnabled(true) before use.
type AttachPt[T any] struct {
	enabled     bool
	hasAttached bool
	comp        T
}

// Attach attaches an interface of type T to the attachment point.
func (a *AttachPt[T]) Attach(comp T) error {
	if a.hasAttached {
		return ErrAttachTooMany
	}
	a.comp = comp
	a.hasAttached = true
	return nil
}

// Detach detaches the current component from the attachment point.
func (a *AttachPt[T]) Detach() error {
	if !a.hasAttached {
		return ErrAttachCompNotFound
	}
	var empty T
	a.comp = empty
	a.hasAttached = false
	return nil
}

// ReplaceFirst detaches any currently attached component and attaches the new one.
func (a *AttachPt[T]) ReplaceFirst(comp T) error {
	if a.hasAttached {
		_ = a.Detach()
	}
	return a.Attach(comp)
}

// First returns the current attached interface.
// Note: The caller should verify HasAttachedAndEnabled() before using.
func (a *AttachPt[T]) First() T {
	if !a.enabled {
		var empty T
		return empty
	}
	return a.comp
}

// Enabled returns true if the attachment point is enabled.
func (a *AttachPt[T]) Enabled() bool {
	return a.enabled
}

// SetEnabled sets the enabled state.
func (a *AttachPt[T]) SetEnabled(enable bool) {
	a.enabled = enable
}

// HasAttached returns true if there is an attached interface.
func (a *AttachPt[T]) HasAttached() bool {
	return a.hasAttached
}

// HasAttachedAndEnabled returns true if there is an attachment and it is enabled.
func (a *AttachPt[T]) HasAttachedAndEnabled() bool {
	return a.hasAttached && a.enabled
}

// Component is the base struct for the decode components. It carries a
// component name and a logger attachment point.
type Component struct {
	name   string
	logger AttachPt[Logger]
}

// InitComponent initializes a Component in place so it can be embedded.
func (c *Component) InitComponent(name string) {
	c.name = name
	c.logger.enabled = true
}

// LoggerAttachPt returns the logger attachment point.
func (c *Component) LoggerAttachPt() *AttachPt[Logger] {
	return &c.logger
}

// LogDebugf logs a debug message prefixed with the component name.
func (c *Component) LogDebugf(format string, args ...any) {
	if c.logger.HasAttachedAndEnabled() {
		c.logger.First().Debug(c.name + ": " + fmt.Sprintf(format, args...))
	}
}

// LogWarningf logs a warning prefixed with the component name.
func (c *Component) LogWarningf(format string, args ...any) {
	if c.logger.HasAttachedAndEnabled() {
		c.logger.First().Warning(c.name + ": " + fmt.Sprintf(format, args...))
	}
}
