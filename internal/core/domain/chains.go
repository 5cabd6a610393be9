package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedNetwork is returned for network names outside the closed set.
var ErrUnsupportedNetwork = errors.New("unsupported network")

type Network string

const (
	NetworkEthereum Network = "ethereum"
	NetworkPolygon  Network = "polygon"
	NetworkArbitrum Network = "arbitrum"
	NetworkFantom   Network = "fantom"
)

// Networks lists every supported network in a stable order.
var Networks = []Network{
	NetworkEthereum,
	NetworkPolygon,
	NetworkArbitrum,
	NetworkFantom,
}

// networkAliases maps accepted spellings to their canonical network.
var networkAliases = map[string]Network{
	"ethereum": NetworkEthereum,
	"mainnet":  NetworkEthereum,
	"polygon":  NetworkPolygon,
	"arbitrum": NetworkArbitrum,
	"fantom":   NetworkFantom,
}

// NetworkToPlatformID maps a network to the price service's asset platform id.
var NetworkToPlatformID = map[Network]string{
	NetworkEthereum: "ethereum",
	NetworkPolygon:  "polygon-pos",
	NetworkArbitrum: "arbitrum-one",
	NetworkFantom:   "fantom",
}

// ParseNetwork canonicalizes a user supplied network name.
func ParseNetwork(name string) (Network, error) {
	n, ok := networkAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, name)
	}
	return n, nil
}

// PlatformID returns the price service platform id for the network.
func (n Network) PlatformID() (string, error) {
	id, ok := NetworkToPlatformID[n]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedNetwork, string(n))
	}
	return id, nil
}

func (n Network) String() string {
	return string(n)
}
