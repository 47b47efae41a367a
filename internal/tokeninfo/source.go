// Package tokeninfo loads the on-chain and off-chain token data that
// admission filters look at.
package tokeninfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/layout"
	"github.com/aman-zulfiqar/solana-pool-sniper/internal/rpc"
)

var ErrNotFound = errors.New("account not found")

// invalidParams is returned by getTokenSupply for a closed mint.
const invalidParams = -32602

// Holder is one of the largest token accounts of a mint.
type Holder struct {
	Address string
	Amount  uint64
}

// Source provides token data. Implementations must be safe for concurrent use.
type Source interface {
	Mint(ctx context.Context, mint solana.PublicKey) (*layout.Mint, error)
	Metadata(ctx context.Context, mint solana.PublicKey) (*layout.Metadata, error)
	// Supply returns ErrNotFound when the mint no longer exists.
	Supply(ctx context.Context, mint solana.PublicKey) (uint64, error)
	LargestHolders(ctx context.Context, mint solana.PublicKey) ([]Holder, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	// Socials returns the non-empty "extensions" links of an off-chain metadata document.
	Socials(ctx context.Context, uri string) (map[string]string, error)
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("metadata http %d", e.StatusCode)
	}
	return fmt.Sprintf("metadata http %d: %s", e.StatusCode, b)
}

// RPCSource reads token data from a Solana RPC node and fetches off-chain
// metadata over HTTP.
type RPCSource struct {
	rpc        *rpc.Client
	http       *http.Client
	commitment string
	logger     *logrus.Logger
}

func NewRPCSource(client *rpc.Client, commitment string, timeout time.Duration, logger *logrus.Logger) *RPCSource {
	if logger == nil {
		logger = logrus.New()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RPCSource{
		rpc:        client,
		http:       &http.Client{Timeout: timeout},
		commitment: commitment,
		logger:     logger,
	}
}

func (s *RPCSource) account(ctx context.Context, address solana.PublicKey) (*rpc.AccountInfo, error) {
	info, err := s.rpc.GetAccountInfo(ctx, address.String(), s.commitment)
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo(%s) failed: %w", address, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, address)
	}
	return info, nil
}

func (s *RPCSource) Mint(ctx context.Context, mint solana.PublicKey) (*layout.Mint, error) {
	info, err := s.account(ctx, mint)
	if err != nil {
		return nil, err
	}
	return layout.DecodeMint(info.Data)
}

func (s *RPCSource) Metadata(ctx context.Context, mint solana.PublicKey) (*layout.Metadata, error) {
	addr, err := layout.MetadataAddress(mint)
	if err != nil {
		return nil, err
	}
	info, err := s.account(ctx, addr)
	if err != nil {
		return nil, err
	}
	return layout.DecodeMetadata(info.Data)
}

func (s *RPCSource) Supply(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	amount, err := s.rpc.GetTokenSupply(ctx, mint.String(), s.commitment)
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == invalidParams {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, mint)
		}
		return 0, fmt.Errorf("getTokenSupply(%s) failed: %w", mint, err)
	}
	return amount.Uint64()
}

func (s *RPCSource) LargestHolders(ctx context.Context, mint solana.PublicKey) ([]Holder, error) {
	accounts, err := s.rpc.GetTokenLargestAccounts(ctx, mint.String(), s.commitment)
	if err != nil {
		return nil, fmt.Errorf("getTokenLargestAccounts(%s) failed: %w", mint, err)
	}

	holders := make([]Holder, 0, len(accounts))
	for _, a := range accounts {
		amount, err := a.Uint64()
		if err != nil {
			return nil, err
		}
		holders = append(holders, Holder{Address: a.Address, Amount: amount})
	}
	return holders, nil
}

func (s *RPCSource) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	amount, err := s.rpc.GetTokenAccountBalance(ctx, account.String(), s.commitment)
	if err != nil {
		return 0, fmt.Errorf("getTokenAccountBalance(%s) failed: %w", account, err)
	}
	return amount.Uint64()
}

func (s *RPCSource) Socials(ctx context.Context, uri string) (map[string]string, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		return nil, fmt.Errorf("unsupported metadata uri %q", uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var doc struct {
		Extensions map[string]interface{} `json:"extensions"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata document: %w", err)
	}

	links := make(map[string]string, len(doc.Extensions))
	for k, v := range doc.Extensions {
		if str, ok := v.(string); ok && strings.TrimSpace(str) != "" {
			links[k] = str
		}
	}
	return links, nil
}
