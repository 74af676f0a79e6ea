package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nftclaim/internal/db"
	"nftclaim/internal/distributor"
	"nftclaim/internal/domain/distribution"
	"nftclaim/internal/ledger"
	"nftclaim/internal/observability/metrics"
	"nftclaim/internal/pubkey"
	"nftclaim/internal/system"
	"nftclaim/internal/token"
)

// EventPublisher forwards committed distribution events.
type EventPublisher interface {
	Publish(ctx context.Context, event distribution.Event) error
}

// ClaimLister reads the audit trail of a distributor.
type ClaimLister interface {
	ListClaims(ctx context.Context, distributor string, limit int) ([]db.ClaimLog, error)
}

// Dependencies enumerates services required by API handlers. Publisher and
// Claims are optional.
type Dependencies struct {
	Service   *distribution.Service
	Publisher EventPublisher
	Claims    ClaimLister
	Logger    *zap.Logger
}

// New builds a gin.Engine with all routes registered.
func New(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), metrics.GinMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: deps.Service, publisher: deps.Publisher, claims: deps.Claims, logger: logger}

	router.POST("/transactions", h.submitTransaction)
	router.GET("/accounts/:key", h.getAccount)
	router.GET("/distributors/:key", h.getDistributor)
	router.GET("/distributors/:key/claims", h.listClaims)
	router.GET("/receipts/:mint", h.getReceipt)
	router.GET("/derive/authority/:state", h.deriveAuthority)
	router.GET("/derive/receipt/:mint", h.deriveReceipt)
	router.GET("/derive/metadata/:mint", h.deriveMetadata)

	return router
}

type handler struct {
	svc       *distribution.Service
	publisher EventPublisher
	claims    ClaimLister
	logger    *zap.Logger
}

type submitResponse struct {
	Status    string              `json:"status"`
	Event     *distribution.Event `json:"event,omitempty"`
	Published bool                `json:"published"`
}

type distributorResponse struct {
	Address          pubkey.Pubkey      `json:"address"`
	CustodyAuthority pubkey.Pubkey      `json:"custody_authority"`
	Remaining        uint64             `json:"remaining"`
	State            *distributor.State `json:"state"`
}

type claimResponse struct {
	EventID     string `json:"event_id"`
	Claimant    string `json:"claimant"`
	AssetMint   string `json:"asset_mint"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	ClaimedAt   string `json:"claimed_at"`
}

func (h *handler) submitTransaction(c *gin.Context) {
	var tx ledger.Transaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	event, err := h.svc.Submit(c.Request.Context(), &tx)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := submitResponse{Status: "committed", Event: event}
	if event != nil && h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), *event); err != nil {
			h.logger.Error("failed to publish event",
				zap.String("event_id", event.ID.String()),
				zap.String("type", event.Type),
				zap.Error(err))
		} else {
			resp.Published = true
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) getAccount(c *gin.Context) {
	key, ok := parseKey(c, "key")
	if !ok {
		return
	}
	acct, err := h.svc.GetAccount(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

func (h *handler) getDistributor(c *gin.Context) {
	key, ok := parseKey(c, "key")
	if !ok {
		return
	}
	st, err := h.svc.GetDistributor(c.Request.Context(), key)
	if err != nil {
		writeError(c, err)
		return
	}
	authority, err := h.svc.CustodyAuthority(key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, distributorResponse{
		Address:          key,
		CustodyAuthority: authority.Address,
		Remaining:        st.Remaining(),
		State:            st,
	})
}

func (h *handler) listClaims(c *gin.Context) {
	key, ok := parseKey(c, "key")
	if !ok {
		return
	}
	if h.claims == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store disabled"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	items, err := h.claims.ListClaims(c.Request.Context(), key.String(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]claimResponse, 0, len(items))
	for _, item := range items {
		out = append(out, claimResponse{
			EventID:     item.EventID.String(),
			Claimant:    item.Claimant,
			AssetMint:   item.AssetMint,
			Destination: item.Destination,
			Amount:      item.Amount.String(),
			ClaimedAt:   item.ClaimedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"claims": out})
}

func (h *handler) getReceipt(c *gin.Context) {
	mint, ok := parseKey(c, "mint")
	if !ok {
		return
	}
	receipt, err := h.svc.GetReceipt(c.Request.Context(), mint)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *handler) deriveAuthority(c *gin.Context) {
	h.derive(c, "state", h.svc.CustodyAuthority)
}

func (h *handler) deriveReceipt(c *gin.Context) {
	h.derive(c, "mint", h.svc.ReceiptAddress)
}

func (h *handler) deriveMetadata(c *gin.Context) {
	h.derive(c, "mint", h.svc.MetadataAddress)
}

func (h *handler) derive(c *gin.Context, param string, fn func(pubkey.Pubkey) (distribution.Derivation, error)) {
	key, ok := parseKey(c, param)
	if !ok {
		return
	}
	d, err := fn(key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func parseKey(c *gin.Context, param string) (pubkey.Pubkey, bool) {
	key, err := pubkey.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return pubkey.Zero, false
	}
	return key, true
}

func writeError(c *gin.Context, err error) {
	if code, ok := distributor.CodeOf(err); ok {
		c.JSON(statusForCode(code), gin.H{"error": err.Error(), "code": code.Code()})
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusForCode(code distributor.Error) int {
	switch code.Class() {
	case "authorization":
		return http.StatusForbidden
	case "precondition", "idempotency":
		return http.StatusConflict
	case "value_mismatch":
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, distribution.ErrAccountNotFound), errors.Is(err, distribution.ErrNotDistributor):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrDuplicateTransaction):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrMissingSignature), errors.Is(err, ledger.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ledger.ErrUnknownProgram), errors.Is(err, ledger.ErrReadonly),
		errors.Is(err, system.ErrInvalidInstruction), errors.Is(err, system.ErrInvalidAccountSize):
		return http.StatusBadRequest
	case errors.Is(err, token.ErrInsufficientFunds), errors.Is(err, token.ErrOwnerMismatch),
		errors.Is(err, token.ErrMintMismatch), errors.Is(err, system.ErrInsufficientFunds),
		errors.Is(err, system.ErrAccountAlreadyInUse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
