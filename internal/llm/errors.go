package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrEmptyResponse is returned when the service answered without any text.
var ErrEmptyResponse = errors.New("completion service returned no text content")

// ConfigError reports a client that cannot be built from its configuration.
// It is raised before any network call.
type ConfigError struct {
	Provider string
	Msg      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("llm config (%s): %s", e.Provider, e.Msg)
}

// StatusCode extracts the HTTP status of an SDK error, or 0 when err did not
// come from an HTTP response.
func StatusCode(err error) int {
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return oaiErr.HTTPStatusCode
	}
	var oaiReqErr *openai.RequestError
	if errors.As(err, &oaiReqErr) {
		return oaiReqErr.HTTPStatusCode
	}
	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return antErr.StatusCode
	}
	// The Gen AI SDK returns APIError by value.
	var genErr genai.APIError
	if errors.As(err, &genErr) {
		return genErr.Code
	}
	var genErrPtr *genai.APIError
	if errors.As(err, &genErrPtr) {
		return genErrPtr.Code
	}
	return 0
}

// IsRetryable reports whether a caller may reasonably retry after err:
// rate limits, server-side failures, timeouts and network errors.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	if errors.Is(err, ErrEmptyResponse) {
		return true
	}

	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests, code == http.StatusRequestTimeout:
		return true
	case code >= 500:
		return true
	case code != 0:
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
