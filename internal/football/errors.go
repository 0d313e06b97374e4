package football

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrQuotaExhausted means the upstream request quota is used up.
var ErrQuotaExhausted = errors.New("upstream quota exhausted")

// APIError is a non-2xx status or a non-empty errors field in the envelope.
type APIError struct {
	Path       string
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("football api %s: status %d: %s", e.Path, e.StatusCode, msg)
}

// QuotaGate is consulted before and after every upstream request.
type QuotaGate interface {
	// Allow blocks while the short window is exhausted and returns
	// ErrQuotaExhausted when the daily quota is used up.
	Allow(ctx context.Context) error
	// Observe records the quota headers of a response.
	Observe(ctx context.Context, header http.Header) error
}

// errorMessages flattens the envelope errors field, which api-football sends
// either as an empty array or as an object of name to message.
func errorMessages(raw map[string]string) []string {
	if len(raw) == 0 {
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(raw))
	for _, name := range names {
		out = append(out, name+": "+raw[name])
	}
	return out
}

// quotaError reports whether the envelope errors mean the plan limit was hit.
func quotaError(raw map[string]string) bool {
	_, requests := raw["requests"]
	_, rateLimit := raw["rateLimit"]
	return requests || rateLimit
}
