// Package app wires the simulation environment, the scanner, the engine,
// and the HTTP control surface into one process.
package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/msandoval/flasharb/internal/circuitbreaker"
	"github.com/msandoval/flasharb/internal/controller"
	"github.com/msandoval/flasharb/internal/engine"
	"github.com/msandoval/flasharb/internal/gas"
	"github.com/msandoval/flasharb/internal/ledger"
	"github.com/msandoval/flasharb/internal/lending"
	"github.com/msandoval/flasharb/internal/scanner"
	"github.com/msandoval/flasharb/internal/settings"
	"github.com/msandoval/flasharb/internal/storage"
	"github.com/msandoval/flasharb/internal/venue"
	"github.com/msandoval/flasharb/pkg/config"
	"github.com/msandoval/flasharb/pkg/healthprobe"
	"github.com/msandoval/flasharb/pkg/httpserver"
	"github.com/msandoval/flasharb/pkg/wallet"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	hub           *httpserver.Hub

	led       *ledger.Ledger
	signer    *wallet.Signer
	facility  *lending.Facility
	primary   *venue.AMM
	alternate *venue.FlatFeeAMM
	settings  *settings.Store
	gasOracle gas.Oracle
	scanner   *scanner.Scanner
	storage   storage.Storage
	breaker   *circuitbreaker.BalanceCircuitBreaker

	// Deployed lazily through POST /deploy; guarded by mu.
	mu   sync.Mutex
	eng  *engine.Engine
	ctrl *controller.Controller

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}
