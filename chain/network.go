package chain

import (
	"strings"

	"github.com/blockberries/relay/types"
)

// Default node API endpoints.
const (
	MainnetAPIURL = "https://api.mainnet.hiro.so"
	TestnetAPIURL = "https://api.testnet.hiro.so"
)

// Chain ids.
const (
	MainnetChainID uint32 = 0x00000001
	TestnetChainID uint32 = 0x80000000
)

// Mainnet returns the main network descriptor.
func Mainnet() types.Network {
	return types.Network{
		Name:       "mainnet",
		Version:    types.TxVersionMainnet,
		ChainID:    MainnetChainID,
		CoreAPIURL: MainnetAPIURL,
	}
}

// Testnet returns the test network descriptor.
func Testnet() types.Network {
	return types.Network{
		Name:       "testnet",
		Version:    types.TxVersionTestnet,
		ChainID:    TestnetChainID,
		CoreAPIURL: TestnetAPIURL,
	}
}

// SelectNetwork maps a configured network name to a descriptor.
// "mainnet" selects the main network; any other value, including the
// empty string, selects the test network. A non-empty apiURL
// replaces the default node endpoint.
func SelectNetwork(name, apiURL string) types.Network {
	var n types.Network
	if strings.EqualFold(strings.TrimSpace(name), "mainnet") {
		n = Mainnet()
	} else {
		n = Testnet()
	}
	if apiURL != "" {
		n.CoreAPIURL = strings.TrimRight(apiURL, "/")
	}
	return n
}
