package rpc

import (
	"context"
)

func commitmentOpts(commitment string) map[string]any {
	if commitment == "" {
		commitment = "confirmed"
	}
	return map[string]any{"commitment": commitment}
}

// GetAccountInfo returns nil, nil when the account does not exist.
func (c *Client) GetAccountInfo(ctx context.Context, address, commitment string) (*AccountInfo, error) {
	opts := commitmentOpts(commitment)
	opts["encoding"] = "base64"

	var out contextValue[*AccountInfo]
	if err := c.CallResult(ctx, "getAccountInfo", []any{address, opts}, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetMultipleAccounts returns one entry per address, nil for missing accounts.
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []string, commitment string) ([]*AccountInfo, error) {
	opts := commitmentOpts(commitment)
	opts["encoding"] = "base64"

	var out contextValue[[]*AccountInfo]
	if err := c.CallResult(ctx, "getMultipleAccounts", []any{addresses, opts}, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

func (c *Client) GetProgramAccounts(ctx context.Context, program, commitment string, filters []Filter) ([]KeyedAccount, error) {
	opts := commitmentOpts(commitment)
	opts["encoding"] = "base64"
	if len(filters) > 0 {
		opts["filters"] = filters
	}

	var out []KeyedAccount
	if err := c.CallResult(ctx, "getProgramAccounts", []any{program, opts}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTokenAccountBalance(ctx context.Context, account, commitment string) (*TokenAmount, error) {
	var out contextValue[TokenAmount]
	if err := c.CallResult(ctx, "getTokenAccountBalance", []any{account, commitmentOpts(commitment)}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

func (c *Client) GetTokenSupply(ctx context.Context, mint, commitment string) (*TokenAmount, error) {
	var out contextValue[TokenAmount]
	if err := c.CallResult(ctx, "getTokenSupply", []any{mint, commitmentOpts(commitment)}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// GetTokenLargestAccounts returns up to 20 largest holders of mint.
func (c *Client) GetTokenLargestAccounts(ctx context.Context, mint, commitment string) ([]LargestAccount, error) {
	var out contextValue[[]LargestAccount]
	if err := c.CallResult(ctx, "getTokenLargestAccounts", []any{mint, commitmentOpts(commitment)}, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}

// GetBalance returns the lamport balance of address.
func (c *Client) GetBalance(ctx context.Context, address, commitment string) (uint64, error) {
	var out contextValue[uint64]
	if err := c.CallResult(ctx, "getBalance", []any{address, commitmentOpts(commitment)}, &out); err != nil {
		return 0, err
	}
	return out.Value, nil
}

func (c *Client) GetBlockHeight(ctx context.Context, commitment string) (uint64, error) {
	var out uint64
	if err := c.CallResult(ctx, "getBlockHeight", []any{commitmentOpts(commitment)}, &out); err != nil {
		return 0, err
	}
	return out, nil
}

func (c *Client) GetLatestBlockhash(ctx context.Context, commitment string) (*Blockhash, error) {
	var out contextValue[Blockhash]
	if err := c.CallResult(ctx, "getLatestBlockhash", []any{commitmentOpts(commitment)}, &out); err != nil {
		return nil, err
	}
	return &out.Value, nil
}

// SendTransaction submits a base64 encoded signed transaction.
func (c *Client) SendTransaction(ctx context.Context, encodedTx string, opts SendOptions) (string, error) {
	cfg := map[string]any{
		"encoding":      "base64",
		"skipPreflight": opts.SkipPreflight,
	}
	if opts.PreflightCommitment != "" {
		cfg["preflightCommitment"] = opts.PreflightCommitment
	}
	if opts.MaxRetries != nil {
		cfg["maxRetries"] = *opts.MaxRetries
	}

	var sig string
	if err := c.CallResult(ctx, "sendTransaction", []any{encodedTx, cfg}, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// GetSignatureStatuses returns one entry per signature, nil when unknown.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error) {
	params := []any{
		signatures,
		map[string]any{"searchTransactionHistory": true},
	}

	var out contextValue[[]*SignatureStatus]
	if err := c.CallResult(ctx, "getSignatureStatuses", params, &out); err != nil {
		return nil, err
	}
	return out.Value, nil
}
