package shopify

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"shopify-hubspot-sync/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// classifyError maps a go-shopify error onto the sync error taxonomy
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: failed to %s: %v", domain.ErrUnauthorized, op, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: failed to %s: %v", domain.ErrNotFound, op, err)
		}
		if respErr.Status >= 400 {
			return fmt.Errorf("%w: failed to %s: %v", domain.ErrUpstreamRejected, op, err)
		}
	}
	var rateErr goshopify.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: failed to %s: %v", domain.ErrUpstreamRejected, op, err)
	}

	// The GraphQL service reports auth failures only in the message text
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key or access token") {
		return fmt.Errorf("%w: failed to %s: %v", domain.ErrUnauthorized, op, err)
	}
	if strings.Contains(errStr, "graphql") || strings.Contains(errStr, "throttled") {
		return fmt.Errorf("%w: failed to %s: %v", domain.ErrUpstreamRejected, op, err)
	}

	return fmt.Errorf("%w: failed to %s: %v", domain.ErrNetwork, op, err)
}
