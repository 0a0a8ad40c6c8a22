package cart

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const snapshotVersion = 1

type snapshot struct {
	Version int            `json:"version"`
	Items   []snapshotItem `json:"items"`
}

type snapshotItem struct {
	ID       int         `json:"id"`
	Title    string      `json:"title"`
	Price    json.Number `json:"price"`
	Image    string      `json:"image"`
	Quantity int         `json:"quantity"`
}

func encodeSnapshot(items []Item) ([]byte, error) {
	snap := snapshot{Version: snapshotVersion, Items: make([]snapshotItem, 0, len(items))}
	for _, item := range items {
		snap.Items = append(snap.Items, snapshotItem{
			ID:       item.ProductID,
			Title:    item.Title,
			Price:    json.Number(item.Price.String()),
			Image:    item.Image,
			Quantity: item.Quantity,
		})
	}
	return json.Marshal(snap)
}

// decodeSnapshot parses a stored payload. Lines that break the cart invariants
// are dropped and repeated ids are merged into the first occurrence, capped at
// MaxLineQuantity. dropped reports how many lines were discarded or merged.
func decodeSnapshot(payload []byte) (items []Item, dropped int, err error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, 0, fmt.Errorf("%w: empty payload", ErrPersistenceCorrupt)
	}

	var snap snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrPersistenceCorrupt, err)
	}
	if snap.Version != snapshotVersion {
		return nil, 0, fmt.Errorf("%w: unsupported version %d", ErrPersistenceCorrupt, snap.Version)
	}

	items = make([]Item, 0, len(snap.Items))
	for _, raw := range snap.Items {
		price, perr := decimal.NewFromString(raw.Price.String())
		if raw.ID <= 0 || raw.Quantity < 1 || raw.Quantity > MaxLineQuantity || perr != nil || price.IsNegative() {
			dropped++
			continue
		}
		if idx := indexOf(items, raw.ID); idx >= 0 {
			items[idx].Quantity = min(items[idx].Quantity+raw.Quantity, MaxLineQuantity)
			dropped++
			continue
		}
		items = append(items, Item{
			ProductID: raw.ID,
			Title:     raw.Title,
			Price:     price,
			Image:     raw.Image,
			Quantity:  raw.Quantity,
		})
	}
	return items, dropped, nil
}
