package api

import (
	"fmt"

	"github.com/satpay/walletd/internal/money"
)

// parseAmount converts a major-unit amount string into paise and rejects
// non-positive values.
func parseAmount(major string) (int64, error) {
	if major == "" {
		return 0, fmt.Errorf("amount is required")
	}
	paise, err := money.ToPaise(major)
	if err != nil {
		return 0, err
	}
	if paise <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return paise, nil
}
