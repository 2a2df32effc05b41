package main

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolPilot/internal/approval"
	"poolPilot/internal/chain"
	"poolPilot/internal/config"
	"poolPilot/internal/dex"
	"poolPilot/internal/lifecycle"
	"poolPilot/internal/model"
	"poolPilot/internal/poolkey"
	"poolPilot/internal/poolstate"
	"poolPilot/internal/pricemath"
	"poolPilot/internal/storage"
	"poolPilot/internal/storage/postgres"
	"poolPilot/internal/txn"
)

func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// pair is the parsed token pair, in configured order, plus its pool key.
type pair struct {
	first  common.Address
	second common.Address
	key    model.PoolKey
	id     common.Hash
}

func parsePair(cfg config.Config) (pair, error) {
	first, err := poolkey.ParseToken("token0", cfg.Token0)
	if err != nil {
		return pair{}, err
	}
	second, err := poolkey.ParseToken("token1", cfg.Token1)
	if err != nil {
		return pair{}, err
	}
	hooks, err := poolkey.ParseAddress("hooks", cfg.Hooks)
	if err != nil {
		return pair{}, err
	}
	key, err := poolkey.NewPoolKey(first, second, cfg.Fee, cfg.TickSpacing, hooks)
	if err != nil {
		return pair{}, err
	}
	id, err := poolkey.PoolID(key)
	if err != nil {
		return pair{}, err
	}
	return pair{first: first, second: second, key: key, id: id}, nil
}

func dialChain(ctx context.Context, cfg config.Config) (*chain.Client, error) {
	client, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RPCRateLimit, cfg.RPCBurst))
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	return client, nil
}

func contract(field, value string) (common.Address, error) {
	return poolkey.ParseAddress(field, value)
}

// openJournal returns the configured sinks and a close func.
func openJournal(ctx context.Context, path, dsn string) (storage.Journal, func(), error) {
	var sinks storage.Multi
	closeFn := func() {}
	if path != "" {
		sinks = append(sinks, storage.NewJsonlJournal(path))
	}
	if dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		sinks = append(sinks, store)
		closeFn = store.Close
	}
	if len(sinks) == 0 {
		return storage.Nop{}, closeFn, nil
	}
	return sinks, closeFn, nil
}

// session bundles everything a transacting command needs.
type session struct {
	cfg       config.Config
	logger    *zap.Logger
	client    *chain.Client
	pair      pair
	reader    *poolstate.Client
	submitter *txn.Submitter
	approvals *approval.Chain
	managers  [2]common.Address
	metas     *dex.TokenMetaCache
	closers   []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func newSession(ctx context.Context, cfg config.Config, logger *zap.Logger) (*session, error) {
	if err := cfg.ValidateWrite(); err != nil {
		return nil, err
	}
	p, err := parsePair(cfg)
	if err != nil {
		return nil, err
	}
	addrs := map[string]*common.Address{
		"state-reader":     new(common.Address),
		"pool-manager":     new(common.Address),
		"position-manager": new(common.Address),
		"permit2":          new(common.Address),
	}
	values := map[string]string{
		"state-reader":     cfg.StateReader,
		"pool-manager":     cfg.PoolManager,
		"position-manager": cfg.PositionManager,
		"permit2":          cfg.Permit2,
	}
	for field, dst := range addrs {
		addr, err := contract(field, values[field])
		if err != nil {
			return nil, err
		}
		*dst = addr
	}

	signer, err := txn.NewSigner(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:      cfg,
		logger:   logger,
		pair:     p,
		managers: [2]common.Address{*addrs["pool-manager"], *addrs["position-manager"]},
		metas:    dex.NewTokenMetaCache(),
	}
	client, err := dialChain(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s.client = client
	s.closers = append(s.closers, client.Close)

	journal, closeJournal, err := openJournal(ctx, cfg.Journal, cfg.PGDSN)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, closeJournal)

	s.reader = poolstate.NewClient(client, *addrs["state-reader"], logger, poolstate.WithRetry(cfg.ReadRetries, 200*time.Millisecond))
	s.submitter = txn.NewSubmitter(client, signer, txn.Options{
		RunID:              time.Now().UTC().Format("20060102T150405.000Z"),
		PoolID:             p.id.Hex(),
		GasPriceMultiplier: cfg.GasPriceMultiplier,
		Journal:            journal,
		Logger:             logger,
	})
	s.approvals = approval.NewChain(approval.Config{
		Delegation:       *addrs["permit2"],
		Spender:          s.managers[1],
		Expiration:       cfg.PermitExpiration,
		ApproveGasLimit:  cfg.GasLimits.Approve,
		DelegateGasLimit: cfg.GasLimits.Permit,
	}, s.submitter, s.reader, logger)

	return s, nil
}

// orchestrator completes lc with the session's contracts and gas limits.
func (s *session) orchestrator(lc lifecycle.Config) (*lifecycle.Orchestrator, error) {
	lc.PoolManager = s.managers[0]
	lc.PositionManager = s.managers[1]
	lc.InitializeGasLimit = s.cfg.GasLimits.Initialize
	lc.ModifyLiquidityGasLimit = s.cfg.GasLimits.ModifyLiquidity
	lc.SwapGasLimit = s.cfg.GasLimits.Swap
	return lifecycle.New(lc, s.pair.key, s.reader, s.approvals, s.submitter, s.logger)
}

func (s *session) tokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	return dex.CachedTokenMeta(ctx, s.metas, s.client, token, s.logger)
}

// units converts a token-unit amount into base units using on-chain decimals.
func (s *session) units(ctx context.Context, token common.Address, amount string) (*big.Int, error) {
	meta, err := s.tokenMeta(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token %s metadata: %w", token.Hex(), err)
	}
	value, err := pricemath.ParseUnits(amount, meta.Decimals)
	if err != nil {
		return nil, fmt.Errorf("amount %q for %s: %w", amount, meta.Label(), err)
	}
	return value, nil
}
