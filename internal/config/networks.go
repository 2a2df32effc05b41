package config

import "fmt"

const (
	NetworkBaseSepolia = "base-sepolia"
	NetworkCustom      = "custom"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// Network is a set of default contract addresses.
type Network struct {
	ChainID         uint64
	PoolManager     string
	PositionManager string
	Permit2         string
	StateReader     string
	Token0          string
	Token1          string
}

var networks = map[string]Network{
	NetworkBaseSepolia: {
		ChainID:         84532,
		PoolManager:     "0x05E73354cFDd6745C338b50BcFDfA3Aa6fA03408",
		PositionManager: "0x4B2C77d209D3405F41a037Ec6c77F7F5b8e2ca80",
		Permit2:         "0x000000000022D473030F116dDEE9F6B43aC78BA3",
		StateReader:     "0xE62efCcb41469fC561203946F228dc11aFfd112d",
		Token0:          "0x08544C4729aD52612b9A9fC20667afD3A81dB0ce",
		Token1:          "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	},
	NetworkCustom: {},
}

// LookupNetwork returns the preset for name.
func LookupNetwork(name string) (Network, bool) {
	n, ok := networks[name]
	return n, ok
}

func (c *Config) applyPreset() error {
	preset, ok := LookupNetwork(c.Network)
	if !ok {
		return fmt.Errorf("unknown network %q", c.Network)
	}
	fill := func(dst *string, value string) {
		if *dst == "" {
			*dst = value
		}
	}
	fill(&c.PoolManager, preset.PoolManager)
	fill(&c.PositionManager, preset.PositionManager)
	fill(&c.Permit2, preset.Permit2)
	fill(&c.StateReader, preset.StateReader)
	fill(&c.Token0, preset.Token0)
	fill(&c.Token1, preset.Token1)
	return nil
}
