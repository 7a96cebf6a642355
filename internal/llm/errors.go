package llm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFatalAPI indicates an authorization, billing or quota failure that
	// retrying cannot fix.
	ErrFatalAPI = errors.New("fatal API error")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrProviderUnavailable indicates a server-side provider failure such as
	// an overloaded model or a 5xx gateway error.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMalformedResponse indicates the model answer could not be parsed
	// into a term -> label mapping.
	ErrMalformedResponse = errors.New("malformed classification response")
)

var fatalPatterns = []string{
	"credit balance",
	"quota",
	"billing",
	"invalid api key",
	"invalid_api_key",
	"incorrect api key",
	"authentication",
	"unauthorized",
	"permission denied",
	"permissiondenied",
	"401",
	"403",
}

var rateLimitPatterns = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"resource exhausted",
	"resourceexhausted",
	"429",
}

var unavailablePatterns = []string{
	"internal server error",
	"internal error",
	"bad gateway",
	"gateway timeout",
	"unavailable",
	"overloaded",
	"502",
	"503",
	"504",
	"529",
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// isFatalAPIError reports whether err is an authorization or billing failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), fatalPatterns)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), rateLimitPatterns)
}

func isUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(strings.ToLower(err.Error()), unavailablePatterns)
}

// wrapFatalError tags provider errors with ErrFatalAPI, ErrRateLimited or
// ErrProviderUnavailable, checked in that order. Other errors are returned
// unchanged.
func wrapFatalError(err error) error {
	switch {
	case err == nil:
		return nil
	case isFatalAPIError(err):
		return fmt.Errorf("%w: %w", ErrFatalAPI, err)
	case isRateLimitError(err):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case isUnavailableError(err):
		return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	default:
		return err
	}
}
