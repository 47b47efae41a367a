package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/aman-zulfiqar/solana-pool-sniper/internal/constants"
)

var errShortMetadata = errors.New("metadata: unexpected end of data")

// Metadata is the subset of a Metaplex token metadata account used by filters.
type Metadata struct {
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	IsMutable       bool
}

// MetadataAddress derives the Metaplex metadata PDA of a mint.
func MetadataAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			[]byte("metadata"),
			constants.MetaplexMetadata.Bytes(),
			mint.Bytes(),
		},
		constants.MetaplexMetadata,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive metadata address: %w", err)
	}
	return addr, nil
}

// DecodeMetadata decodes the borsh encoded Metaplex metadata account.
func DecodeMetadata(data []byte) (*Metadata, error) {
	r := &borshReader{data: data}

	if _, err := r.u8(); err != nil { // key
		return nil, err
	}
	update, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	mint, err := r.pubkey()
	if err != nil {
		return nil, err
	}
	name, err := r.str()
	if err != nil {
		return nil, err
	}
	symbol, err := r.str()
	if err != nil {
		return nil, err
	}
	uri, err := r.str()
	if err != nil {
		return nil, err
	}
	if _, err := r.take(2); err != nil { // seller fee basis points
		return nil, err
	}

	hasCreators, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasCreators == 1 {
		n, err := r.u32()
		if err != nil {
			return nil, err
		}
		// address + verified + share
		if _, err := r.take(int(n) * 34); err != nil {
			return nil, err
		}
	}

	if _, err := r.u8(); err != nil { // primary sale happened
		return nil, err
	}
	mutable, err := r.u8()
	if err != nil {
		return nil, err
	}

	return &Metadata{
		UpdateAuthority: update,
		Mint:            mint,
		Name:            trimPadding(name),
		Symbol:          trimPadding(symbol),
		URI:             trimPadding(uri),
		IsMutable:       mutable == 1,
	}, nil
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00 ")
}

type borshReader struct {
	data []byte
	pos  int
}

func (r *borshReader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errShortMetadata
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *borshReader) u8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *borshReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *borshReader) pubkey() (solana.PublicKey, error) {
	b, err := r.take(32)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return solana.PublicKeyFromBytes(b), nil
}

func (r *borshReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
