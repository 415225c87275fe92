package generate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindInvalidRequest
	KindUnauthorized
	KindModelUnavailable
	KindRateLimited
	KindTransport
	KindService
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindUnauthorized:
		return "Unauthorized"
	case KindModelUnavailable:
		return "ModelUnavailable"
	case KindRateLimited:
		return "RateLimited"
	case KindTransport:
		return "TransportError"
	case KindService:
		return "ServiceError"
	case KindDecode:
		return "DecodeError"
	default:
		return "Unknown"
	}
}

// Error is the only error type Generate returns.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfter suggests how long the caller should wait before trying
	// again. Zero when waiting will not help.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Hint is the user-facing remediation text for the error.
func (e *Error) Hint() string {
	switch e.Kind {
	case KindInvalidInput:
		return "Please enter a prompt and choose one of the available image sizes."
	case KindInvalidRequest:
		return "The image service rejected the request. Try a shorter or simpler prompt."
	case KindUnauthorized:
		return "Authentication failed. Please check your HuggingFace token and ensure it has 'Write' permissions."
	case KindModelUnavailable:
		return fmt.Sprintf("The model is still loading. Please try again in about %s.", roundUp(e.RetryAfter))
	case KindRateLimited:
		return fmt.Sprintf("Rate limit exceeded. Please wait %s and try again. Free tier has limited requests.", roundUp(e.RetryAfter))
	case KindTransport:
		return "Could not reach the image service. Check your connection and try again."
	case KindService:
		return "The image service failed. Please try again later."
	case KindDecode:
		return "The image service returned something that is not an image."
	default:
		return "Something went wrong generating the image."
	}
}

func roundUp(d time.Duration) time.Duration {
	if d <= 0 {
		return 30 * time.Second
	}
	return time.Duration(math.Ceil(d.Seconds())) * time.Second
}

func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsCanceled reports whether the caller abandoned the request. Such results
// should not be recorded.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}
