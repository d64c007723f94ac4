// internal/apperror/error.go
package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeSource      ErrorType = "source"
	ErrorTypeAI          ErrorType = "ai"
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeAggregation ErrorType = "aggregation"
	ErrorTypeInternal    ErrorType = "internal"
)

// Error codes
const (
	// Source error codes
	ErrSourceRequest    = "SRC_001"
	ErrSourceStatus     = "SRC_002"
	ErrSourceParse      = "SRC_003"
	ErrSourceTimeout    = "SRC_004"
	ErrSourceCredential = "SRC_005"
	ErrSourcePanic      = "SRC_006"

	// AI error codes
	ErrAIRequest  = "AI_001"
	ErrAIResponse = "AI_002"
	ErrAIPanic    = "AI_003"

	// Config error codes
	ErrConfigLoad       = "CFG_001"
	ErrConfigValidation = "CFG_002"

	// Aggregation error codes
	ErrAggregationFault = "AGG_001"
)

// Error is the application error type. Component names the source or
// subsystem that produced it.
type Error struct {
	Type       ErrorType
	Code       string
	Message    string
	Component  string
	StatusCode int
	Inner      error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("[%s-%s] %s: %v", e.Type, e.Code, e.Message, e.Inner)
	}
	return fmt.Sprintf("[%s-%s] %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// NewError creates a new Error
func NewError(errType ErrorType, code, component, message string, inner error) *Error {
	return &Error{
		Type:      errType,
		Code:      code,
		Message:   message,
		Component: component,
		Inner:     inner,
	}
}

// NewSourceError creates an error raised by an evidence source
func NewSourceError(code, component, message string, inner error) *Error {
	return NewError(ErrorTypeSource, code, component, message, inner)
}

// NewStatusError records a non-success HTTP status returned by a source.
func NewStatusError(component string, status int) *Error {
	err := NewSourceError(ErrSourceStatus, component, fmt.Sprintf("%s returned status %d", component, status), nil)
	err.StatusCode = status
	return err
}

// NewAIError creates an error raised by the reasoning collaborator
func NewAIError(code, message string, inner error) *Error {
	return NewError(ErrorTypeAI, code, "reasoner", message, inner)
}

// NewConfigError creates a configuration error
func NewConfigError(code, message string, inner error) *Error {
	return NewError(ErrorTypeConfig, code, "config", message, inner)
}

// NewAggregationError wraps a fault recovered at the coordinator boundary
func NewAggregationError(message string, inner error) *Error {
	return NewError(ErrorTypeAggregation, ErrAggregationFault, "verifier", message, inner)
}

// IsTransient determines if an error is likely temporary
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var ae *Error
	if errors.As(err, &ae) {
		switch ae.Code {
		case ErrSourceTimeout, ErrSourceRequest:
			return true
		case ErrSourceStatus:
			return ae.StatusCode == 429 || ae.StatusCode >= 500
		}
	}
	return false
}

// ErrorEvent represents a recorded error event
type ErrorEvent struct {
	Type      ErrorType `json:"type"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Component string    `json:"component"`
	Time      time.Time `json:"time"`
}

// EventFromError converts err into an ErrorEvent attributed to component.
func EventFromError(err error, component string) ErrorEvent {
	event := ErrorEvent{
		Time:      time.Now(),
		Component: component,
	}

	var ae *Error
	if errors.As(err, &ae) {
		event.Type = ae.Type
		event.Code = ae.Code
		event.Message = ae.Error()
		if ae.Component != "" {
			event.Component = ae.Component
		}
	} else {
		event.Type = ErrorTypeInternal
		event.Code = "INTERNAL_001"
		event.Message = err.Error()
	}
	return event
}

// ErrorBuffer keeps the most recent error events
type ErrorBuffer struct {
	events []ErrorEvent
	size   int
	mutex  sync.RWMutex
}

// NewErrorBuffer creates a buffer holding at most size events
func NewErrorBuffer(size int) *ErrorBuffer {
	if size <= 0 {
		size = 100
	}
	return &ErrorBuffer{
		events: make([]ErrorEvent, 0, size),
		size:   size,
	}
}

// Add appends an event, dropping the oldest once full
func (b *ErrorBuffer) Add(event ErrorEvent) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > b.size {
		b.events = b.events[len(b.events)-b.size:]
	}
}

// GetRecent returns up to count events, newest first
func (b *ErrorBuffer) GetRecent(count int) []ErrorEvent {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if count <= 0 || count > len(b.events) {
		count = len(b.events)
	}
	out := make([]ErrorEvent, 0, count)
	for i := len(b.events) - 1; i >= 0 && len(out) < count; i-- {
		out = append(out, b.events[i])
	}
	return out
}

// Len returns the number of buffered events
func (b *ErrorBuffer) Len() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.events)
}
