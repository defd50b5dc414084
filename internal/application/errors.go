package application

import (
	"errors"

	"shopify-hubspot-sync/internal/domain"
)

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
