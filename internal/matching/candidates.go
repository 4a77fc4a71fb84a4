// Package matching pairs scanned receipts with accounting transactions and
// decides how confident the pairing is.
package matching

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/ledger"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// Candidate is a proposed (receipt, transaction) pairing. Candidates live
// only for the duration of one matching run.
type Candidate struct {
	ReceiptID   string
	Transaction ledger.Transaction

	// Component scores, each normalized to [0, 1].
	AmountScore   float64
	DateScore     float64
	VendorScore   float64
	AffinityScore float64

	// Score is the weighted aggregate on a 0-100 scale.
	Score float64
}

// Generator narrows a transaction pool down to the few transactions worth
// scoring for a given receipt.
type Generator struct {
	cfg config.Matching
}

func NewGenerator(cfg config.Matching) *Generator {
	return &Generator{cfg: cfg}
}

// Generate filters the pool by date and amount tolerance, ranks survivors by
// a cheap pre-score, and returns at most MaxCandidates of them. An empty
// result is a valid outcome, not an error.
func (g *Generator) Generate(rec receipt.Record, pool []ledger.Transaction) []Candidate {
	type ranked struct {
		tx       ledger.Transaction
		prescore float64
	}

	var survivors []ranked

	for _, tx := range pool {
		dayDelta := dayDelta(rec.Date, tx.Date)
		if dayDelta > g.cfg.DayTolerance {
			continue
		}

		amountDelta := absDelta(rec.Amount, tx.Amount)
		if amountDelta > amountTolerance(g.cfg, rec.Amount) {
			continue
		}

		// Cheap pre-score: smaller deltas rank higher. Expensive text
		// similarity is left to the scorer.
		prescore := float64(dayDelta) + relativeDelta(rec.Amount, tx.Amount)*10

		survivors = append(survivors, ranked{tx: tx, prescore: prescore})
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].prescore < survivors[j].prescore
	})

	n := g.cfg.MaxCandidates
	if n > len(survivors) {
		n = len(survivors)
	}

	out := make([]Candidate, 0, n)
	for _, s := range survivors[:n] {
		out = append(out, Candidate{ReceiptID: rec.ID, Transaction: s.tx})
	}

	return out
}

// amountTolerance is the larger of the absolute and the relative tolerance
// for the given receipt amount.
func amountTolerance(cfg config.Matching, amount int64) int64 {
	relative := decimal.NewFromInt(amount).Abs().
		Mul(decimal.NewFromFloat(cfg.AmountRelativeTolerance)).
		Round(0).IntPart()

	if relative > cfg.AmountTolerance {
		return relative
	}

	return cfg.AmountTolerance
}

// dayDelta counts whole calendar days between two day-precision dates.
func dayDelta(a, b time.Time) int {
	const daySeconds = 24 * 60 * 60

	delta := a.Unix()/daySeconds - b.Unix()/daySeconds
	if delta < 0 {
		delta = -delta
	}

	return int(delta)
}

func absDelta(a, b int64) int64 {
	d := a - b
	if d < 0 {
		return -d
	}

	return d
}

func relativeDelta(a, b int64) float64 {
	larger := math.Max(math.Abs(float64(a)), math.Abs(float64(b)))
	if larger == 0 {
		return 0
	}

	return math.Abs(float64(a-b)) / larger
}
