package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the on-disk date format of SalesFact.WeekStart
const DateLayout = "2006-01-02"

// SalesFact is one (product, ISO week) aggregate of completed order lines.
// ⭐ SSOT: dataset record shape consumed by the model scripts
type SalesFact struct {
	Product   string    // UPPER(TRIM(name))
	Quantity  int       // >= 0
	WeekStart time.Time // ISO Monday, UTC midnight
}

type salesFactJSON struct {
	Modelo   string `json:"Modelo"`
	Cantidad int    `json:"Cantidad vendida"`
	Semana   string `json:"Semana"`
}

// MarshalJSON keeps the record keys the model scripts read
func (f SalesFact) MarshalJSON() ([]byte, error) {
	return json.Marshal(salesFactJSON{
		Modelo:   f.Product,
		Cantidad: f.Quantity,
		Semana:   f.WeekStart.Format(DateLayout),
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (f *SalesFact) UnmarshalJSON(data []byte) error {
	var raw salesFactJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	week, err := time.Parse(DateLayout, raw.Semana)
	if err != nil {
		return fmt.Errorf("invalid Semana %q: %w", raw.Semana, err)
	}
	f.Product = raw.Modelo
	f.Quantity = raw.Cantidad
	f.WeekStart = week
	return nil
}

// SaleLine is one line item of a completed order, as read from storage
type SaleLine struct {
	Product  string
	Quantity int
	SoldAt   time.Time
}

// NormalizeProduct is the product label used as SalesFact key
func NormalizeProduct(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// WeekStart returns the Monday (UTC midnight) of t's ISO week
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -offset)
}
