package commands

import (
	"context"
	"fmt"
	"strings"

	domainerrors "sealedgov/contexts/governance/voting-engine/domain/errors"
	"sealedgov/contexts/governance/voting-engine/ports"
)

// currentHeight reads the externally supplied block height once per command.
func currentHeight(ctx context.Context, heights ports.HeightSource) (uint64, error) {
	if heights == nil {
		return 0, fmt.Errorf("height source is not configured: %w", domainerrors.ErrInvalidInput)
	}
	return heights.CurrentHeight(ctx)
}

func isAdministrator(administrators []string, caller string) bool {
	caller = strings.TrimSpace(caller)
	if caller == "" {
		return false
	}
	for _, admin := range administrators {
		if strings.TrimSpace(admin) == caller {
			return true
		}
	}
	return false
}
