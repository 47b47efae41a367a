package lists

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
)

var ErrNotFound = errors.New("list entry not found")

// Name identifies a mint list.
type Name string

const (
	Snipe     Name = "snipe"
	Blacklist Name = "blacklist"
)

func ParseName(s string) (Name, error) {
	switch Name(s) {
	case Snipe, Blacklist:
		return Name(s), nil
	}
	return "", fmt.Errorf("unknown list %q", s)
}

func (n Name) redisKey() string {
	if n == Blacklist {
		return constants.RedisKeyBlacklist
	}
	return constants.RedisKeySnipeList
}

var mintRe = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateEntry checks that s looks like a base58 address.
func ValidateEntry(s string) error {
	if !mintRe.MatchString(s) {
		return fmt.Errorf("invalid address %q", s)
	}
	return nil
}
