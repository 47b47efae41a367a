package rpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// AccountData is base64 account data as returned with "encoding":"base64".
type AccountData []byte

func (d *AccountData) UnmarshalJSON(b []byte) error {
	var parts []string
	if err := json.Unmarshal(b, &parts); err != nil {
		return fmt.Errorf("account data: %w", err)
	}
	if len(parts) == 0 {
		*d = nil
		return nil
	}
	if len(parts) > 1 && parts[1] != "base64" {
		return fmt.Errorf("account data: unsupported encoding %q", parts[1])
	}
	raw, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return fmt.Errorf("account data: %w", err)
	}
	*d = raw
	return nil
}

// AccountInfo is a base64 encoded account.
type AccountInfo struct {
	Data       AccountData `json:"data"`
	Owner      string      `json:"owner"`
	Lamports   uint64      `json:"lamports"`
	Executable bool        `json:"executable"`
}

// KeyedAccount is one getProgramAccounts entry.
type KeyedAccount struct {
	Pubkey  string      `json:"pubkey"`
	Account AccountInfo `json:"account"`
}

// Memcmp matches bytes at an offset of the account data.
type Memcmp struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"` // base58
}

// Filter is a getProgramAccounts / programSubscribe filter.
type Filter struct {
	DataSize uint64  `json:"dataSize,omitempty"`
	Memcmp   *Memcmp `json:"memcmp,omitempty"`
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString"`
}

// Uint64 parses the raw amount.
func (t TokenAmount) Uint64() (uint64, error) {
	v, err := strconv.ParseUint(t.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", t.Amount, err)
	}
	return v, nil
}

// LargestAccount is one getTokenLargestAccounts entry.
type LargestAccount struct {
	Address string `json:"address"`
	TokenAmount
}

// Blockhash is the value of getLatestBlockhash.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SignatureStatus is one getSignatureStatuses entry.
type SignatureStatus struct {
	Slot               uint64      `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// Reached reports whether the status satisfies commitment.
func (s *SignatureStatus) Reached(commitment string) bool {
	switch commitment {
	case "confirmed":
		return s.ConfirmationStatus == "confirmed" || s.ConfirmationStatus == "finalized"
	case "finalized":
		return s.ConfirmationStatus == "finalized"
	default:
		return s.ConfirmationStatus != ""
	}
}

// SendOptions configures sendTransaction
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment string
	MaxRetries          *int
}

type contextValue[T any] struct {
	Value T `json:"value"`
}
