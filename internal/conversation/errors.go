package conversation

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/aws/smithy-go"
	"google.golang.org/api/googleapi"
)

// ErrLLMUnavailable is reported when no model provider is configured.
var ErrLLMUnavailable = errors.New("conversation: no LLM provider configured")

// ErrorKind classifies a failed model call.
type ErrorKind string

const (
	KindRateLimited ErrorKind = "rate_limited"
	KindTransient   ErrorKind = "transient"
	KindTimeout     ErrorKind = "timeout"
	KindPermanent   ErrorKind = "permanent"
)

// Retryable reports whether an immediate second attempt is worthwhile.
func (k ErrorKind) Retryable() bool { return k == KindTransient }

var (
	throttleCodes = map[string]bool{
		"ThrottlingException":           true,
		"TooManyRequestsException":      true,
		"ServiceQuotaExceededException": true,
	}
	transientCodes = map[string]bool{
		"ServiceUnavailableException": true,
		"InternalServerException":     true,
		"ModelNotReadyException":      true,
	}
)

// ClassifyLLMError maps provider and transport errors onto an ErrorKind.
// A nil error is not classified and returns "".
func ClassifyLLMError(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	if errors.Is(err, ErrLLMUnavailable) {
		return KindPermanent
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return kindForStatus(gerr.Code)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case throttleCodes[code]:
			return KindRateLimited
		case transientCodes[code]:
			return KindTransient
		case code == "ModelTimeoutException":
			return KindTimeout
		}
	}

	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) {
		if kind := kindForStatus(status.HTTPStatusCode()); kind != KindPermanent {
			return kind
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "resource exhausted"), strings.Contains(msg, "quota"):
		return KindRateLimited
	case strings.Contains(msg, "unavailable"), strings.Contains(msg, "connection reset"):
		return KindTransient
	}
	return KindPermanent
}

func kindForStatus(code int) ErrorKind {
	switch {
	case code == 429:
		return KindRateLimited
	case code == 408 || code == 504:
		return KindTimeout
	case code >= 500:
		return KindTransient
	}
	return KindPermanent
}
