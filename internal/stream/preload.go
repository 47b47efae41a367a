package stream

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/cache"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

// PreloadMarkets caches every existing OpenBook market quoted in quoteMint
// and returns how many were stored.
func PreloadMarkets(
	ctx context.Context,
	client *rpc.Client,
	markets *cache.MarketCache,
	quoteMint solana.PublicKey,
	commitment string,
	logger *logrus.Logger,
) (int, error) {
	accounts, err := client.GetProgramAccounts(ctx, constants.OpenBookProgram.String(), commitment, MarketFilters(quoteMint))
	if err != nil {
		return 0, fmt.Errorf("failed to load markets: %w", err)
	}

	stored := 0
	for _, acc := range accounts {
		id, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			continue
		}
		market, err := layout.DecodeMarket(id, acc.Account.Data)
		if err != nil {
			logger.WithError(err).WithField("market", acc.Pubkey).Debug("skipping market")
			continue
		}
		if markets.Save(market) {
			stored++
		}
	}

	logger.WithFields(logrus.Fields{"markets": stored, "fetched": len(accounts)}).Info("markets preloaded")
	return stored, nil
}
