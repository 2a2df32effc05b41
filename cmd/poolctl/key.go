package main

import (
	"github.com/spf13/cobra"
)

type keyOutput struct {
	PoolID      string `json:"pool_id"`
	Currency0   string `json:"currency0"`
	Currency1   string `json:"currency1"`
	Fee         uint32 `json:"fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Hooks       string `json:"hooks"`
}

func runKey(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	p, err := parsePair(cfg)
	if err != nil {
		return err
	}
	return printJSON(keyOutput{
		PoolID:      p.id.Hex(),
		Currency0:   p.key.Currency0.Hex(),
		Currency1:   p.key.Currency1.Hex(),
		Fee:         p.key.Fee,
		TickSpacing: p.key.TickSpacing,
		Hooks:       p.key.Hooks.Hex(),
	})
}
