package history

import (
	"fmt"

	"github.com/osse101/DropTracker_Go/internal/domain"
)

func domainMalformed(reason string, page, row int) error {
	return fmt.Errorf("%w: %s (page %d, row %d)", domain.ErrMalformedPage, reason, page, row)
}
