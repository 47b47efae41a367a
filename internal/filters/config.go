package filters

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/tokeninfo"
)

// Config toggles the individual filters.
type Config struct {
	CheckRenounced bool
	CheckFreezable bool
	CheckBurned    bool
	CheckMutable   bool
	CheckSocials   bool

	MinPoolSize decimal.Decimal
	MaxPoolSize decimal.Decimal

	CheckHolders bool
	MinHolders   int

	CheckDistribution bool
	MaxTopHolderPct   decimal.Decimal

	CheckAbnormalDistribution bool

	// Blacklist enables the blacklist filter when set.
	Blacklist Membership
}

func (c Config) Validate() error {
	if c.MinPoolSize.IsNegative() || c.MaxPoolSize.IsNegative() {
		return fmt.Errorf("pool size bounds must not be negative")
	}
	if c.MaxPoolSize.IsPositive() && c.MinPoolSize.GreaterThan(c.MaxPoolSize) {
		return fmt.Errorf("min pool size %s exceeds max pool size %s", c.MinPoolSize, c.MaxPoolSize)
	}
	if c.CheckHolders && (c.MinHolders < 0 || c.MinHolders > constants.MaxLargestAccounts) {
		return fmt.Errorf("min holders must be within [0, %d]", constants.MaxLargestAccounts)
	}
	if c.CheckDistribution && (!c.MaxTopHolderPct.IsPositive() || c.MaxTopHolderPct.GreaterThan(decimal.NewFromInt(100))) {
		return fmt.Errorf("max top holder percent must be within (0, 100]")
	}
	return nil
}

// Build returns a pipeline with every enabled filter.
func Build(cfg Config, src tokeninfo.Source, logger *logrus.Logger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var fs []Filter
	if cfg.Blacklist != nil {
		fs = append(fs, Blacklisted{List: cfg.Blacklist})
	}
	if cfg.CheckRenounced {
		fs = append(fs, Renounced{})
	}
	if cfg.CheckFreezable {
		fs = append(fs, Freezable{})
	}
	if cfg.CheckBurned {
		fs = append(fs, Burned{})
	}
	if cfg.CheckMutable {
		fs = append(fs, Mutable{})
	}
	if cfg.CheckSocials {
		fs = append(fs, Socials{})
	}
	if cfg.MinPoolSize.IsPositive() || cfg.MaxPoolSize.IsPositive() {
		fs = append(fs, PoolSize{Min: cfg.MinPoolSize, Max: cfg.MaxPoolSize})
	}
	if cfg.CheckHolders {
		fs = append(fs, Holders{Min: cfg.MinHolders})
	}
	if cfg.CheckDistribution {
		fs = append(fs, Concentration{MaxPercent: cfg.MaxTopHolderPct})
	}
	if cfg.CheckAbnormalDistribution {
		fs = append(fs, AbnormalDistribution{})
	}

	return NewPipeline(src, logger, fs...), nil
}
