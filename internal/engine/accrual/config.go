package accrual

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lendfabric/repayment-engine/internal/config"
)

// NewConfig parses the late-fee product terms from configuration.
func NewConfig(p *config.ProductConfig) (Config, error) {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("invalid product timezone %q: %w", p.Timezone, err)
	}

	dailyRate, err := decimal.NewFromString(p.DailyLateRate)
	if err != nil {
		return Config{}, fmt.Errorf("invalid daily late rate %q: %w", p.DailyLateRate, err)
	}

	fixedFee := decimal.Zero
	if p.FixedFeeAmount != "" {
		fixedFee, err = decimal.NewFromString(p.FixedFeeAmount)
		if err != nil {
			return Config{}, fmt.Errorf("invalid fixed fee amount %q: %w", p.FixedFeeAmount, err)
		}
	}

	return Config{
		DailyLateRate:         dailyRate,
		FixedFeeAmount:        fixedFee,
		FixedFeeFrequencyDays: p.FixedFeeFrequencyDays,
		Timezone:              loc,
	}, nil
}
