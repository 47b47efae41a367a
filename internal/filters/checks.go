package filters

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/amm"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/tokeninfo"
)

// Renounced passes when the mint authority is disabled.
type Renounced struct{}

func (Renounced) Name() string { return "renounced" }

func (Renounced) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	mint, err := snap.Mint(ctx)
	if err != nil {
		return indeterminate(err)
	}
	if mint.MintAuthority != nil {
		return fail("mint authority " + mint.MintAuthority.String() + " is set")
	}
	return pass()
}

// Freezable passes when no freeze authority exists.
type Freezable struct{}

func (Freezable) Name() string { return "freezable" }

func (Freezable) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	mint, err := snap.Mint(ctx)
	if err != nil {
		return indeterminate(err)
	}
	if mint.FreezeAuthority != nil {
		return fail("freeze authority " + mint.FreezeAuthority.String() + " is set")
	}
	return pass()
}

// Burned passes when the LP supply is zero or the LP mint is closed.
type Burned struct{}

func (Burned) Name() string { return "burned" }

func (Burned) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	supply, err := snap.LPSupply(ctx)
	if errors.Is(err, tokeninfo.ErrNotFound) {
		return pass()
	}
	if err != nil {
		return indeterminate(err)
	}
	if supply > 0 {
		return fail(fmt.Sprintf("lp supply %d not burned", supply))
	}
	return pass()
}

// Mutable passes when the token metadata can no longer change.
type Mutable struct{}

func (Mutable) Name() string { return "mutable" }

func (Mutable) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	md, err := snap.Metadata(ctx)
	if err != nil {
		return indeterminate(err)
	}
	if md.IsMutable {
		return fail("metadata is mutable")
	}
	return pass()
}

// Socials passes when the off-chain metadata links at least one social.
type Socials struct{}

func (Socials) Name() string { return "socials" }

func (Socials) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	links, err := snap.Socials(ctx)
	if err != nil {
		return indeterminate(err)
	}
	if len(links) == 0 {
		return fail("no socials")
	}
	return pass()
}

// PoolSize passes when the quote reserve lies within [Min, Max]. A zero
// bound is not checked.
type PoolSize struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (PoolSize) Name() string { return "pool_size" }

func (f PoolSize) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	raw, err := snap.QuoteReserve(ctx)
	if err != nil {
		return indeterminate(err)
	}
	size := amm.FromRaw(raw, snap.Pool().QuoteDecimals)

	if f.Min.IsPositive() && size.LessThan(f.Min) {
		return fail(fmt.Sprintf("pool size %s < %s", size, f.Min))
	}
	if f.Max.IsPositive() && size.GreaterThan(f.Max) {
		return fail(fmt.Sprintf("pool size %s > %s", size, f.Max))
	}
	return pass()
}

// outsideHolders are the largest holders except the pool vault.
func outsideHolders(ctx context.Context, snap *tokeninfo.Snapshot) ([]tokeninfo.Holder, error) {
	holders, err := snap.Holders(ctx)
	if err != nil {
		return nil, err
	}
	vault := snap.Pool().BaseVault.String()
	out := make([]tokeninfo.Holder, 0, len(holders))
	for _, h := range holders {
		if h.Address == vault || h.Amount == 0 {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// Holders passes when at least Min accounts besides the pool hold the token.
// The RPC reports at most the 20 largest accounts, so Min is capped there.
type Holders struct {
	Min int
}

func (Holders) Name() string { return "holders" }

func (f Holders) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	holders, err := outsideHolders(ctx, snap)
	if err != nil {
		return indeterminate(err)
	}
	if len(holders) < f.Min {
		return fail(fmt.Sprintf("%d holders < %d", len(holders), f.Min))
	}
	return pass()
}

// Concentration passes when no single holder besides the pool owns more
// than MaxPercent of the supply.
type Concentration struct {
	MaxPercent decimal.Decimal
}

func (Concentration) Name() string { return "concentration" }

func (f Concentration) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	mint, err := snap.Mint(ctx)
	if err != nil {
		return indeterminate(err)
	}
	if mint.Supply == 0 {
		return indeterminate(errors.New("supply is zero"))
	}
	holders, err := outsideHolders(ctx, snap)
	if err != nil {
		return indeterminate(err)
	}

	supply := amm.FromRaw(mint.Supply, 0)
	hundred := decimal.NewFromInt(100)
	for _, h := range holders {
		share := amm.FromRaw(h.Amount, 0).Div(supply).Mul(hundred)
		if share.GreaterThan(f.MaxPercent) {
			return fail(fmt.Sprintf("holder %s owns %s%%", h.Address, share.StringFixed(2)))
		}
	}
	return pass()
}

// AbnormalDistribution fails when a holder owns more than the pool itself.
type AbnormalDistribution struct{}

func (AbnormalDistribution) Name() string { return "abnormal_distribution" }

func (AbnormalDistribution) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	reserve, err := snap.BaseReserve(ctx)
	if err != nil {
		return indeterminate(err)
	}
	holders, err := outsideHolders(ctx, snap)
	if err != nil {
		return indeterminate(err)
	}
	for _, h := range holders {
		if h.Amount > reserve {
			return fail(fmt.Sprintf("holder %s owns %d > pool %d", h.Address, h.Amount, reserve))
		}
	}
	return pass()
}

// Membership reports whether an address is listed.
type Membership interface {
	Contains(entry string) bool
}

// Blacklisted fails when the mint or its update authority is listed.
type Blacklisted struct {
	List Membership
}

func (Blacklisted) Name() string { return "blacklist" }

func (f Blacklisted) Check(ctx context.Context, snap *tokeninfo.Snapshot) Result {
	mint := snap.Pool().Token()
	if f.List.Contains(mint) {
		return fail("mint " + mint + " is blacklisted")
	}
	md, err := snap.Metadata(ctx)
	if errors.Is(err, tokeninfo.ErrNotFound) {
		return pass()
	}
	if err != nil {
		return indeterminate(err)
	}
	if auth := md.UpdateAuthority.String(); f.List.Contains(auth) {
		return fail("update authority " + auth + " is blacklisted")
	}
	return pass()
}
