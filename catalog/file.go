package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"mcapServer/game"
)

// FileSource reads the catalog from a coins.json file.
type FileSource struct {
	Path string
}

// marketCap accepts a JSON number, a numeric string or null.
type marketCap float64

func (m *marketCap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid marketCap %q: %w", s, err)
		}
		*m = marketCap(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = marketCap(f)
	return nil
}

type fileCoin struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Logo      string    `json:"logo"`
	Color     string    `json:"color"`
	Platform  string    `json:"platform"`
	MarketCap marketCap `json:"marketCap"`
}

// LoadCatalog reads and decodes the file on every call.
func (f FileSource) LoadCatalog(ctx context.Context) ([]game.CatalogItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var coins []fileCoin
	if err := json.Unmarshal(data, &coins); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", f.Path, err)
	}

	items := make([]game.CatalogItem, 0, len(coins))
	for _, c := range coins {
		items = append(items, game.CatalogItem{
			ID:       c.ID,
			Value:    float64(c.MarketCap),
			Name:     c.Name,
			Symbol:   c.Symbol,
			Logo:     c.Logo,
			Color:    c.Color,
			Platform: c.Platform,
		})
	}
	return items, nil
}
