package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/circuitbreaker"
	"github.com/msandoval/flasharb/internal/gas"
	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/internal/lending"
	"github.com/msandoval/flasharb/internal/scanner"
	"github.com/msandoval/flasharb/internal/settings"
	"github.com/msandoval/flasharb/internal/storage"
	"github.com/msandoval/flasharb/pkg/cache"
	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/healthprobe"
	"github.com/msandoval/flasharb/pkg/httpserver"
	"github.com/msandoval/flasharb/pkg/types"
	"github.com/msandoval/flasharb/pkg/wallet"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	signer, err := setupSigner(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup signer: %w", err)
	}

	led := ledger.New(logger)
	facility := lending.NewFacility(deriveAddress("flasharb/facility"), cfg.LoanPremiumBPS, logger)
	primary, alternate := setupVenues(cfg, logger)

	seedGenesis(cfg, led, signer, facility, primary, alternate)

	gasOracle, err := setupGasOracle(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup gas oracle: %w", err)
	}

	feedCache, err := setupCache(logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	sc, err := setupScanner(cfg, logger, feedCache)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scanner: %w", err)
	}

	st, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	breaker, err := setupBreaker(cfg, led, signer, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup circuit breaker: %w", err)
	}

	healthChecker := healthprobe.New()
	hub := httpserver.NewHub(logger)

	a := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		hub:           hub,
		led:           led,
		signer:        signer,
		facility:      facility,
		primary:       primary,
		alternate:     alternate,
		settings:      setupSettings(cfg, signer),
		gasOracle:     gasOracle,
		scanner:       sc,
		storage:       st,
		breaker:       breaker,
		ctx:           ctx,
		cancel:        cancel,
	}

	a.httpServer = httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Bot:           a,
		Hub:           hub,
	})

	return a, nil
}

func setupSigner(cfg *config.Config) (*wallet.Signer, error) {
	if cfg.PrivateKeyHex == "" {
		return wallet.NewEphemeralSigner()
	}
	return wallet.NewSigner(cfg.PrivateKeyHex)
}

func setupGasOracle(cfg *config.Config, logger *zap.Logger) (gas.Oracle, error) {
	if cfg.GasOracleMode == "rpc" {
		return gas.NewRPCOracle(cfg.RPCURL, logger)
	}
	return gas.NewStaticOracle(scaleUnits(cfg.StaticGasPriceWei, 0)), nil
}

func setupCache(logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
		Logger:      logger,
	})
}

func setupScanner(cfg *config.Config, logger *zap.Logger, feedCache cache.Cache) (*scanner.Scanner, error) {
	feed := scanner.NewFeedClient(cfg.FeedBaseURL, cfg.FeedTimeout, feedCache, cfg.FeedCacheTTL, logger)

	return scanner.New(scanner.Config{
		Network:         cfg.Network,
		MonitoredTokens: cfg.MonitoredTokens,
		MinLiquidityUSD: cfg.ScanMinLiquidity,
		DeltaLowerPct:   cfg.ScanDeltaLowerPct,
		DeltaUpperPct:   cfg.ScanDeltaUpperPct,
		MaxPriceRatio:   cfg.ScanMaxPriceRatio,
		PriceBandMin:    cfg.ScanPriceBandMin,
		PriceBandMax:    cfg.ScanPriceBandMax,
		TopK:            cfg.ScanTopK,
		Logger:          logger,
	}, feed)
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		return storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupSettings(cfg *config.Config, signer *wallet.Signer) *settings.Store {
	return settings.NewStore(signer.Address(), types.Settings{
		MinProfitBPS:   cfg.MinProfitBPS,
		MaxGasPrice:    scaleUnits(cfg.MaxGasPriceWei, 0),
		MaxSlippageBPS: cfg.MaxSlippageBPS,
	})
}

func setupBreaker(cfg *config.Config, led *ledger.Ledger, signer *wallet.Signer,
	logger *zap.Logger,
) (*circuitbreaker.BalanceCircuitBreaker, error) {
	return circuitbreaker.New(&circuitbreaker.Config{
		CheckInterval:  cfg.BreakerCheckInterval,
		LoanMultiplier: cfg.BreakerLoanMultiplier,
		MinAbsolute:    cfg.BreakerMinAbsolute,
		Hysteresis:     cfg.BreakerHysteresis,
		AssetDecimals:  cfg.QuoteAssetDecimals,
		Source:         led,
		Asset:          cfg.QuoteAsset,
		Account:        signer.Address(),
		Logger:         logger,
	})
}
