package api

import (
	"net/http"
	"time"

	"QuotePulse/internal/market"
	"QuotePulse/internal/usecase"
	xhttp "QuotePulse/pkg/http"
	"QuotePulse/pkg/logger"
	"QuotePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// Handler serves the REST quote surface. It shares the resolver stack with
// the stream, so both answer the same price for the same tick.
type Handler struct {
	quotes     *usecase.QuoteService
	classifier *market.Classifier
	log        *logger.Logger
}

// NewHandler creates the REST handler.
func NewHandler(quotes *usecase.QuoteService, classifier *market.Classifier, log *logger.Logger) *Handler {
	return &Handler{
		quotes:     quotes,
		classifier: classifier,
		log:        log,
	}
}

// RegisterRoutes registers API routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.GET("/api/market/status", h.MarketStatus)
	e.GET("/api/quotes/:symbol", h.GetQuote)
	e.POST("/api/quotes/batch", h.GetBatch)
}

// quoteResponse wraps a quote with the market context it was served under.
type quoteResponse struct {
	Quote        interface{} `json:"quote"`
	IsMarketOpen bool        `json:"isMarketOpen"`
	Phase        string      `json:"phase"`
}

// Health reports liveness.
func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// MarketStatus reports the current market phase.
func (h *Handler) MarketStatus(c echo.Context) error {
	snap := h.classifier.Classify(time.Now())
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"phase":        snap.Label(),
		"isMarketOpen": snap.IsMarketOpen(),
		"isWeekend":    snap.IsWeekend,
		"timestamp":    time.Now().UnixMilli(),
	})
}

// GetQuote returns one quote. ?refresh=true bypasses the cache read.
func (h *Handler) GetQuote(c echo.Context) error {
	symbols := util.NormalizeSymbols([]string{c.Param("symbol")})
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c,
			xhttp.NewAppError("ERR_REQUIRED", "symbol", "symbol is required", http.StatusBadRequest))
	}

	refresh := c.QueryParam("refresh") == "true"
	q, snap := h.quotes.Get(c.Request().Context(), symbols[0], refresh)
	return xhttp.SuccessResponse(c, quoteResponse{
		Quote:        q,
		IsMarketOpen: snap.IsMarketOpen(),
		Phase:        snap.Label(),
	})
}

// batchRequest is the batch quote request body.
type batchRequest struct {
	Symbols      []string `json:"symbols" validate:"required,min=1,max=50,dive,required"`
	ForceRefresh bool     `json:"forceRefresh" default:"false"`
}

// GetBatch returns quotes for up to 50 symbols in one call.
func (h *Handler) GetBatch(c echo.Context) error {
	req := new(batchRequest)
	if errs := xhttp.ReadAndValidateRequest(c, req); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}

	symbols := util.NormalizeSymbols(req.Symbols)
	if len(symbols) == 0 {
		return xhttp.AppErrorResponse(c,
			xhttp.BadRequestError("at least one non-empty symbol is required"))
	}

	quotes, snap := h.quotes.GetBatch(c.Request().Context(), symbols, req.ForceRefresh)
	rows := make([]quoteResponse, 0, len(quotes))
	for _, q := range quotes {
		rows = append(rows, quoteResponse{
			Quote:        q,
			IsMarketOpen: snap.IsMarketOpen(),
			Phase:        snap.Label(),
		})
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
