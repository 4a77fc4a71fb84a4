package matching

import (
	"context"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// LinkRow is one historically accepted (counterparty, vendor) link as read
// from the learned-link store.
type LinkRow struct {
	Counterparty string
	Vendor       string
	Confidence   float64
	Accepts      int
}

//go:generate mockgen -source=affinity.go -destination=affinity_mock.go -package=matching
type LinkRepository interface {
	// ListAccepted returns every accepted link on record.
	ListAccepted(ctx context.Context) ([]LinkRow, error)

	// RecordAccepted appends one accepted link observation.
	RecordAccepted(ctx context.Context, counterparty, vendor string, confidence float64) error
}

// Placeholder strings that untyped historical rows carry instead of a real
// vendor name. Rows with these must never produce an affinity signal.
var sentinelVendors = map[string]struct{}{
	"NONE": {},
	"N/A":  {},
	"NA":   {},
	"-":    {},
	"なし":   {},
	"不明":   {},
}

func isSentinel(normalized string) bool {
	_, ok := sentinelVendors[normalized]
	return ok
}

type affinityKey struct {
	counterparty string
	vendor       string
}

// AffinityModel holds learned vendor weights for one batch run. It is built
// once from validated historical rows and read concurrently afterwards.
type AffinityModel struct {
	weights map[affinityKey]float64
}

// BuildAffinityModel loads accepted links and folds them into per-pair
// weights. Rows whose counterparty or vendor text is empty or a placeholder
// are dropped here, at ingest, so no downstream scoring path can be poisoned
// by them.
func BuildAffinityModel(ctx context.Context, repo LinkRepository) (*AffinityModel, error) {
	rows, err := repo.ListAccepted(ctx)
	if err != nil {
		return nil, err
	}

	m := &AffinityModel{weights: make(map[affinityKey]float64, len(rows))}

	for _, row := range rows {
		cp := receipt.NormalizeVendor(row.Counterparty)
		v := receipt.NormalizeVendor(row.Vendor)

		if cp == "" || v == "" || isSentinel(cp) || isSentinel(v) {
			continue
		}

		if row.Confidence <= 0 {
			continue
		}

		weight := row.Confidence
		if row.Accepts > 1 {
			// Repeated acceptance strengthens the signal, capped at 1.
			weight += float64(row.Accepts-1) * 0.05
		}

		if weight > 1 {
			weight = 1
		}

		key := affinityKey{counterparty: cp, vendor: v}
		if weight > m.weights[key] {
			m.weights[key] = weight
		}
	}

	return m, nil
}

// EmptyAffinityModel returns a model with no learned weights. Every lookup
// scores 0.
func EmptyAffinityModel() *AffinityModel {
	return &AffinityModel{weights: map[affinityKey]float64{}}
}

// Weight returns the learned affinity in [0, 1] between a transaction
// counterparty and a receipt vendor. Unknown pairs and empty inputs score 0.
func (m *AffinityModel) Weight(counterparty, vendor string) float64 {
	cp := receipt.NormalizeVendor(counterparty)
	v := receipt.NormalizeVendor(vendor)

	if cp == "" || v == "" {
		return 0
	}

	return m.weights[affinityKey{counterparty: cp, vendor: v}]
}

// Size reports how many validated pairs the model holds.
func (m *AffinityModel) Size() int {
	return len(m.weights)
}
