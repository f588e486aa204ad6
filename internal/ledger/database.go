package ledger

import (
	"errors"

	"github.com/jmorrow/portfolio-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateInstrument(instrument *types.Instrument) error {
	return d.db.Create(instrument).Error
}

func (d *Database) GetInstrument(instrumentID string) (*types.Instrument, error) {
	var instrument types.Instrument
	if err := d.db.Where("instrument_id = ?", instrumentID).First(&instrument).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instrument, nil
}

func (d *Database) GetInstrumentBySymbol(symbol string) (*types.Instrument, error) {
	var instrument types.Instrument
	if err := d.db.Where("symbol = ?", symbol).First(&instrument).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &instrument, nil
}

func (d *Database) ListInstruments() ([]types.Instrument, error) {
	var instruments []types.Instrument
	if err := d.db.Order("symbol ASC").Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

func (d *Database) CreateTrade(trade *types.Trade) error {
	return d.db.Create(trade).Error
}

// ListTrades returns trades ordered by (trade_date, id) ascending. The id
// tie-break reflects creation order, which FIFO matching relies on for
// same-day trades. An empty instrumentID returns the whole ledger.
func (d *Database) ListTrades(instrumentID string) ([]types.Trade, error) {
	var trades []types.Trade
	q := d.db.Order("trade_date ASC, id ASC")
	if instrumentID != "" {
		q = q.Where("instrument_id = ?", instrumentID)
	}
	if err := q.Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (d *Database) CreatePriceBar(bar *types.PriceBar) error {
	return d.db.Create(bar).Error
}

// ListPrices returns price bars ordered by price_date ascending. An empty
// instrumentID returns bars for all instruments.
func (d *Database) ListPrices(instrumentID string) ([]types.PriceBar, error) {
	var bars []types.PriceBar
	q := d.db.Order("price_date ASC, instrument_id ASC")
	if instrumentID != "" {
		q = q.Where("instrument_id = ?", instrumentID)
	}
	if err := q.Find(&bars).Error; err != nil {
		return nil, err
	}
	return bars, nil
}

// LatestPrice returns the most recent bar for an instrument, or nil when no
// price history exists.
func (d *Database) LatestPrice(instrumentID string) (*types.PriceBar, error) {
	var bar types.PriceBar
	err := d.db.Where("instrument_id = ?", instrumentID).
		Order("price_date DESC").
		First(&bar).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bar, nil
}
