package transport

import (
	"errors"
	"fmt"
)

// Status is the result code of opening a trace transport.
type Status int

const (
	StatusOK          Status = iota
	StatusNoInterface        // probe or trace interface not found
	StatusNoDevPath          // device path does not match an attached probe
	StatusNoAccess           // device found but could not be opened
	StatusNoPipe             // endpoint could not be configured, or TCP connect failed
	StatusNoThread           // reader could not be started
	StatusInitFailed         // USB subsystem initialisation failed
)

type statusDesc struct {
	name string
	msg  string
}

var statusDescs = map[Status]statusDesc{
	StatusOK:          {"OK", "trace capture started"},
	StatusNoInterface: {"NO_INTERFACE", "trace interface not found"},
	StatusNoDevPath:   {"NO_DEVPATH", "no probe at the device path"},
	StatusNoAccess:    {"NO_ACCESS", "access to the probe denied"},
	StatusNoPipe:      {"NO_PIPE", "trace pipe could not be opened"},
	StatusNoThread:    {"NO_THREAD", "trace reader could not be started"},
	StatusInitFailed:  {"INIT_FAILED", "USB initialisation failed"},
}

func (s Status) String() string {
	if d, ok := statusDescs[s]; ok {
		return d.name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Message returns a human readable description of s.
func (s Status) Message() string {
	if d, ok := statusDescs[s]; ok {
		return d.msg
	}
	return "unknown status"
}

// StatusError is an error from opening a transport, tagged with a Status.
type StatusError struct {
	Status Status
	Err    error
}

func newStatusError(s Status, err error) *StatusError {
	return &StatusError{Status: s, Err: err}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (%s)", e.Status.Message(), e.Status)
	}
	return fmt.Sprintf("%s (%s): %v", e.Status.Message(), e.Status, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusOf returns the Status carried by err: StatusOK for nil and
// StatusInitFailed for errors without a status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInitFailed
}
