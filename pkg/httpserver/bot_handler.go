package httpserver

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/msandoval/flasharb/pkg/types"
)

// ErrBotAlreadyRunning is returned by StartBot when the loop is active.
var ErrBotAlreadyRunning = errors.New("bot already running")

// ErrNotDeployed is returned when an operation needs a deployed engine.
var ErrNotDeployed = errors.New("engine not deployed")

// BotService is the control surface the HTTP API drives. Implemented by
// the application orchestrator. The owner-only engine operations are
// invoked on the operator's behalf and return ErrNotDeployed until an
// engine exists.
type BotService interface {
	Deploy(ctx context.Context) (common.Address, error)
	StartBot() error
	StopBot()
	Status() BotStatus
	LastOpportunities() []types.Opportunity

	Quote(tokenA, tokenB common.Address, feeLeg1, feeLeg2 uint32, testAmount *big.Int) (types.OpportunityQuote, error)
	UpdateSettings(next types.Settings) error
	Withdraw(token common.Address) (*big.Int, error)
	WithdrawReserve() (*big.Int, error)
}

// BotStatus is the GET /status response body.
type BotStatus struct {
	WalletAddress string `json:"walletAddress"`
	Balance       string `json:"balance"`
	EngineAddress string `json:"engineAddress"`
	Deployed      bool   `json:"deployed"`
	Running       bool   `json:"running"`
	State         string `json:"state"`
}

// DeployResponse is the POST /deploy response body.
type DeployResponse struct {
	EngineAddress string `json:"engineAddress"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// BotHandler handles the bot control endpoints.
type BotHandler struct {
	bot    BotService
	logger *zap.Logger
}

// NewBotHandler creates a bot handler.
func NewBotHandler(bot BotService, logger *zap.Logger) *BotHandler {
	return &BotHandler{
		bot:    bot,
		logger: logger,
	}
}

// HandleOpportunities handles GET /opportunities requests.
func (h *BotHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	opps := h.bot.LastOpportunities()
	if opps == nil {
		opps = []types.Opportunity{}
	}

	h.writeJSON(w, opps, http.StatusOK)
}

// HandleDeploy handles POST /deploy requests.
func (h *BotHandler) HandleDeploy(w http.ResponseWriter, r *http.Request) {
	addr, err := h.bot.Deploy(r.Context())
	if err != nil {
		h.logger.Error("deploy-failed", zap.Error(err))
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	}

	h.logger.Info("engine-deployed", zap.String("engine-address", addr.Hex()))
	h.writeJSON(w, DeployResponse{EngineAddress: addr.Hex()}, http.StatusOK)
}

// HandleStart handles POST /bot/start requests.
func (h *BotHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	err := h.bot.StartBot()
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, ErrNotDeployed) {
			status = http.StatusPreconditionFailed
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, map[string]string{"status": "started"}, http.StatusOK)
}

// HandleStop handles POST /bot/stop requests. Stopping an already stopped
// bot is a no-op.
func (h *BotHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.bot.StopBot()
	h.writeJSON(w, map[string]string{"status": "stopped"}, http.StatusOK)
}

// HandleStatus handles GET /status requests.
func (h *BotHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.bot.Status(), http.StatusOK)
}

// QuoteRequest is the POST /quote request body.
type QuoteRequest struct {
	TokenA     string `json:"tokenA"`
	TokenB     string `json:"tokenB"`
	FeeLeg1    uint32 `json:"feeLeg1"`
	FeeLeg2    uint32 `json:"feeLeg2"`
	TestAmount string `json:"testAmount"` // base units, decimal string
}

// QuoteResponse is the POST /quote response body. Amounts are decimal
// strings in base units.
type QuoteResponse struct {
	Profitable        bool   `json:"profitable"`
	ExpectedProfit    string `json:"expectedProfit"`
	RecommendedAmount string `json:"recommendedAmount"`
	Available         bool   `json:"available"`
}

// SettingsRequest is the POST /settings request body.
type SettingsRequest struct {
	MinProfitBPS   uint64 `json:"minProfitBps"`
	MaxGasPriceWei string `json:"maxGasPriceWei"`
	MaxSlippageBPS uint64 `json:"maxSlippageBps"`
}

// WithdrawRequest is the POST /withdraw request body. Reserve selects the
// native reserve; otherwise Token names the asset to sweep.
type WithdrawRequest struct {
	Token   string `json:"token"`
	Reserve bool   `json:"reserve"`
}

// WithdrawResponse is the POST /withdraw response body.
type WithdrawResponse struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// HandleQuote handles POST /quote requests: a two-leg round-trip probe on
// the primary venue at the current thresholds.
func (h *BotHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !common.IsHexAddress(req.TokenA) || !common.IsHexAddress(req.TokenB) {
		h.writeError(w, "tokenA and tokenB must be hex addresses", http.StatusBadRequest)
		return
	}

	testAmount, ok := new(big.Int).SetString(req.TestAmount, 10)
	if !ok || testAmount.Sign() <= 0 {
		h.writeError(w, "testAmount must be a positive decimal string", http.StatusBadRequest)
		return
	}

	quote, err := h.bot.Quote(common.HexToAddress(req.TokenA), common.HexToAddress(req.TokenB),
		req.FeeLeg1, req.FeeLeg2, testAmount)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusPreconditionFailed)
		return
	}

	h.writeJSON(w, QuoteResponse{
		Profitable:        quote.Profitable,
		ExpectedProfit:    quote.ExpectedProfit.String(),
		RecommendedAmount: quote.RecommendedAmount.String(),
		Available:         quote.Available,
	}, http.StatusOK)
}

// HandleSettings handles POST /settings requests. Values are stored
// verbatim and take effect on the next submission.
func (h *BotHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	maxGasPrice, ok := new(big.Int).SetString(req.MaxGasPriceWei, 10)
	if !ok {
		h.writeError(w, "maxGasPriceWei must be a decimal string", http.StatusBadRequest)
		return
	}

	err := h.bot.UpdateSettings(types.Settings{
		MinProfitBPS:   req.MinProfitBPS,
		MaxGasPrice:    maxGasPrice,
		MaxSlippageBPS: req.MaxSlippageBPS,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrNotDeployed) {
			status = http.StatusPreconditionFailed
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.writeJSON(w, map[string]string{"status": "updated"}, http.StatusOK)
}

// HandleWithdraw handles POST /withdraw requests, sweeping the engine's
// token balance or native reserve to the operator.
func (h *BotHandler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		amount *big.Int
		err    error
		label  string
	)

	if req.Reserve {
		label = "native"
		amount, err = h.bot.WithdrawReserve()
	} else {
		if !common.IsHexAddress(req.Token) {
			h.writeError(w, "token must be a hex address", http.StatusBadRequest)
			return
		}
		label = common.HexToAddress(req.Token).Hex()
		amount, err = h.bot.Withdraw(common.HexToAddress(req.Token))
	}

	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, ErrNotDeployed):
			status = http.StatusPreconditionFailed
		case types.ReasonOf(err) == types.ReasonNothingToWithdraw:
			status = http.StatusNotFound
		}
		h.writeError(w, err.Error(), status)
		return
	}

	h.logger.Info("withdrawal-requested",
		zap.String("token", label),
		zap.String("amount", amount.String()))

	h.writeJSON(w, WithdrawResponse{Token: label, Amount: amount.String()}, http.StatusOK)
}

func (h *BotHandler) writeJSON(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *BotHandler) writeError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, ErrorResponse{Error: message}, status)
}
