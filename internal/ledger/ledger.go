package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmorrow/portfolio-api/internal/types"
	"github.com/jmorrow/portfolio-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Validation failures. The engine never sees structurally invalid records
// because the ledger rejects them at the door.
var (
	ErrUnknownSymbol   = errors.New("unknown instrument symbol")
	ErrInvalidSide     = errors.New("side must be BUY or SELL")
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	ErrInvalidPrice    = errors.New("price must be positive")
	ErrInvalidFees     = errors.New("fees must not be negative")
	ErrInvalidDate     = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidSymbol   = errors.New("symbol must not be empty")
)

// Service owns the append-only trade and price histories. Records are
// validated, created once and never mutated.
type Service struct {
	db *Database
}

// NewService creates a new ledger service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// DB exposes the ledger's query layer to the analytics engine.
func (s *Service) DB() *Database {
	return s.db
}

// CreateInstrument registers a new instrument symbol and assigns its ID.
func (s *Service) CreateInstrument(req types.CreateInstrumentRequest) (*types.Instrument, error) {
	if req.Symbol == "" {
		return nil, ErrInvalidSymbol
	}

	instrument := &types.Instrument{
		InstrumentID: "INS_" + uuid.New().String(),
		Symbol:       req.Symbol,
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateInstrument(instrument); err != nil {
		return nil, err
	}

	log.Info().
		Str("service", "ledger").
		Str("instrument_id", instrument.InstrumentID).
		Str("symbol", instrument.Symbol).
		Msg("registered instrument")

	return instrument, nil
}

// RecordTrade validates and appends a trade. Quantity and price must be
// positive, fees non-negative; violations fail hard since no correct result
// can be derived from a malformed ledger.
func (s *Service) RecordTrade(req types.RecordTradeRequest) (*types.Trade, error) {
	if req.Side != types.SideBuy && req.Side != types.SideSell {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSide, req.Side)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, req.Quantity)
	}
	if !req.Price.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPrice, req.Price)
	}
	if req.Fees.IsNegative() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidFees, req.Fees)
	}

	tradeDate, err := parseDate(req.TradeDate)
	if err != nil {
		return nil, err
	}

	instrument, err := s.db.GetInstrumentBySymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	if instrument == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, req.Symbol)
	}

	trade := &types.Trade{
		TradeID:      "TRD_" + uuid.New().String(),
		InstrumentID: instrument.InstrumentID,
		TradeDate:    tradeDate,
		Side:         req.Side,
		Quantity:     req.Quantity,
		Price:        req.Price,
		Fees:         req.Fees,
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreateTrade(trade); err != nil {
		return nil, err
	}

	log.Debug().
		Str("service", "ledger").
		Str("trade_id", trade.TradeID).
		Str("symbol", req.Symbol).
		Str("side", trade.Side).
		Int64("quantity", trade.Quantity).
		Str("price", trade.Price.String()).
		Msg("recorded trade")

	return trade, nil
}

// RecordPriceBar validates and appends a daily close. A second bar for the
// same (instrument, date) is rejected by the unique index.
func (s *Service) RecordPriceBar(req types.RecordPriceBarRequest) (*types.PriceBar, error) {
	if !req.Close.IsPositive() {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPrice, req.Close)
	}

	priceDate, err := parseDate(req.PriceDate)
	if err != nil {
		return nil, err
	}

	instrument, err := s.db.GetInstrumentBySymbol(req.Symbol)
	if err != nil {
		return nil, err
	}
	if instrument == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, req.Symbol)
	}

	bar := &types.PriceBar{
		InstrumentID: instrument.InstrumentID,
		PriceDate:    priceDate,
		Close:        req.Close,
		CreatedAt:    time.Now(),
	}

	if err := s.db.CreatePriceBar(bar); err != nil {
		return nil, err
	}

	log.Debug().
		Str("service", "ledger").
		Str("symbol", req.Symbol).
		Str("price_date", priceDate.Format(types.DateFormat)).
		Str("close", bar.Close.String()).
		Msg("recorded price bar")

	return bar, nil
}

// ListInstruments returns all registered instruments ordered by symbol.
func (s *Service) ListInstruments() ([]types.Instrument, error) {
	return s.db.ListInstruments()
}

// ListTrades returns the trade history ordered by (trade_date, id). An empty
// symbol returns trades across all instruments.
func (s *Service) ListTrades(symbol string) ([]types.Trade, error) {
	instrumentID, err := s.resolveSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.db.ListTrades(instrumentID)
}

// ListPrices returns the price history ordered by price_date. An empty
// symbol returns bars across all instruments.
func (s *Service) ListPrices(symbol string) ([]types.PriceBar, error) {
	instrumentID, err := s.resolveSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return s.db.ListPrices(instrumentID)
}

func (s *Service) resolveSymbol(symbol string) (string, error) {
	if symbol == "" {
		return "", nil
	}
	instrument, err := s.db.GetInstrumentBySymbol(symbol)
	if err != nil {
		return "", err
	}
	if instrument == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return instrument.InstrumentID, nil
}

// parseDate normalizes a YYYY-MM-DD string to UTC midnight.
func parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(types.DateFormat, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: got %q", ErrInvalidDate, value)
	}
	return t, nil
}

// isValidationError reports whether err is a ledger invariant violation, as
// opposed to an infrastructure failure.
func isValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrUnknownSymbol, ErrInvalidSide, ErrInvalidQuantity,
		ErrInvalidPrice, ErrInvalidFees, ErrInvalidDate, ErrInvalidSymbol,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// GinHandlers contains HTTP handlers for ledger endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for ledger endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// CreateInstrumentHandler handles POST requests to register instruments
func (h *GinHandlers) CreateInstrumentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.CreateInstrumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		instrument, err := h.service.CreateInstrument(req)
		if err != nil && isValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, instrument, err)
	}
}

// ListInstrumentsHandler handles GET requests for the instrument universe
func (h *GinHandlers) ListInstrumentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		instruments, err := h.service.ListInstruments()
		response.Handle(c, instruments, err)
	}
}

// RecordTradeHandler handles POST requests to append trades
func (h *GinHandlers) RecordTradeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.RecordTradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		trade, err := h.service.RecordTrade(req)
		if err != nil && isValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, trade, err)
	}
}

// ListTradesHandler handles GET requests for the trade ledger
// Optional query parameter: symbol
func (h *GinHandlers) ListTradesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		trades, err := h.service.ListTrades(c.Query("symbol"))
		if err != nil && errors.Is(err, ErrUnknownSymbol) {
			response.NotFound(c, err.Error())
			return
		}
		response.Handle(c, trades, err)
	}
}

// RecordPriceBarHandler handles POST requests to append daily closes
func (h *GinHandlers) RecordPriceBarHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.RecordPriceBarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		bar, err := h.service.RecordPriceBar(req)
		if err != nil && isValidationError(err) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, bar, err)
	}
}

// ListPricesHandler handles GET requests for the price history
// Optional query parameter: symbol
func (h *GinHandlers) ListPricesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bars, err := h.service.ListPrices(c.Query("symbol"))
		if err != nil && errors.Is(err, ErrUnknownSymbol) {
			response.NotFound(c, err.Error())
			return
		}
		response.Handle(c, bars, err)
	}
}
