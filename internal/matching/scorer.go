package matching

import (
	"sort"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/receipt"
)

// Scorer turns candidates into confidence scores. Given identical inputs
// and configuration it always produces identical output.
type Scorer struct {
	cfg      config.Matching
	affinity *AffinityModel
}

func NewScorer(cfg config.Matching, affinity *AffinityModel) *Scorer {
	if affinity == nil {
		affinity = EmptyAffinityModel()
	}

	return &Scorer{cfg: cfg, affinity: affinity}
}

// Score fills in the component scores and the weighted aggregate for each
// candidate, in place, and returns the slice re-ordered best first. Ordering
// between equal scores falls back to the transaction's external id so runs
// are reproducible.
func (s *Scorer) Score(rec receipt.Record, candidates []Candidate) []Candidate {
	for i := range candidates {
		s.score(rec, &candidates[i])
	}

	sortCandidates(candidates)

	return candidates
}

func (s *Scorer) score(rec receipt.Record, c *Candidate) {
	tx := c.Transaction

	c.AmountScore = s.amountScore(rec.Amount, tx.Amount)
	c.DateScore = s.dateScore(dayDelta(rec.Date, tx.Date))
	c.VendorScore = Similarity(
		receipt.NormalizeVendor(rec.Vendor),
		receipt.NormalizeVendor(tx.Counterparty),
	)
	c.AffinityScore = s.affinity.Weight(tx.Counterparty, rec.Vendor)

	aggregate := 100 * (c.AmountScore*s.cfg.WeightAmount +
		c.DateScore*s.cfg.WeightDate +
		c.VendorScore*s.cfg.WeightVendor +
		c.AffinityScore*s.cfg.WeightAffinity)

	weightSum := s.cfg.WeightAmount + s.cfg.WeightDate + s.cfg.WeightVendor + s.cfg.WeightAffinity
	if weightSum > 0 {
		aggregate /= weightSum
	}

	if aggregate < 0 {
		aggregate = 0
	}

	if aggregate > 100 {
		aggregate = 100
	}

	c.Score = aggregate
}

// amountScore is 1 on exact match and decays linearly to 0 at the tolerance
// boundary, so a smaller delta never scores lower than a larger one.
func (s *Scorer) amountScore(receiptAmount, txAmount int64) float64 {
	delta := absDelta(receiptAmount, txAmount)
	if delta == 0 {
		return 1
	}

	tolerance := amountTolerance(s.cfg, receiptAmount)
	if tolerance == 0 || delta >= tolerance {
		return 0
	}

	return 1 - float64(delta)/float64(tolerance)
}

func (s *Scorer) dateScore(days int) float64 {
	if days == 0 {
		return 1
	}

	if s.cfg.DayTolerance == 0 || days >= s.cfg.DayTolerance {
		return 0
	}

	return 1 - float64(days)/float64(s.cfg.DayTolerance)
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}

		return candidates[i].Transaction.ExternalID < candidates[j].Transaction.ExternalID
	})
}
