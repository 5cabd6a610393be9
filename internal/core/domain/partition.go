package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidToken is returned when a token address is not a 20-byte hex address.
var ErrInvalidToken = errors.New("invalid token address")

const blocksPartition = "blocks"

// PartitionKey identifies one cache partition. Token is empty for the
// block-timestamp partition of a network.
type PartitionKey struct {
	Network Network
	Token   string
}

// BlockPartition returns the block-timestamp partition for a network.
func BlockPartition(network Network) PartitionKey {
	return PartitionKey{Network: network}
}

// PricePartition returns the price partition for a token on a network.
func PricePartition(network Network, token string) (PartitionKey, error) {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return PartitionKey{}, err
	}
	return PartitionKey{Network: network, Token: normalized}, nil
}

// IsBlocks reports whether the key names a block-timestamp partition.
func (k PartitionKey) IsBlocks() bool {
	return k.Token == ""
}

// String returns "<network>/blocks" or "<network>/<token>".
func (k PartitionKey) String() string {
	if k.IsBlocks() {
		return string(k.Network) + "/" + blocksPartition
	}
	return string(k.Network) + "/" + k.Token
}

// ParsePartitionKey is the inverse of PartitionKey.String.
func ParsePartitionKey(s string) (PartitionKey, error) {
	networkPart, rest, ok := strings.Cut(s, "/")
	if !ok {
		return PartitionKey{}, fmt.Errorf("invalid partition %q", s)
	}
	network, err := ParseNetwork(networkPart)
	if err != nil {
		return PartitionKey{}, err
	}
	if rest == blocksPartition {
		return BlockPartition(network), nil
	}
	return PricePartition(network, rest)
}

// NormalizeToken validates a token address and lowercases it.
func NormalizeToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if !common.IsHexAddress(token) {
		return "", fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	if !strings.HasPrefix(token, "0x") && !strings.HasPrefix(token, "0X") {
		token = "0x" + token
	}
	return strings.ToLower(token), nil
}
