package matching

import (
	"time"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/config"
)

// Disposition is the outcome of classifying a receipt's best candidate.
type Disposition string

const (
	// DispositionAuto links the receipt without human involvement.
	DispositionAuto Disposition = "AUTO"
	// DispositionAssist routes the best candidate to a human for confirmation.
	DispositionAssist Disposition = "ASSIST"
	// DispositionManual parks the receipt for fully manual handling.
	DispositionManual Disposition = "MANUAL"
)

// Decision is the classifier's verdict for one receipt.
type Decision struct {
	Disposition Disposition
	Best        *Candidate // nil when no candidate survived generation
	Score       float64
	Downgraded  bool // tie-break lowered the disposition by one tier
	CreatedAt   time.Time
}

// Classify maps the scored candidates to a disposition. When the two best
// scores sit within TieEpsilon of each other the result is downgraded one
// tier: an ambiguous match must never auto-apply.
func Classify(candidates []Candidate, cfg config.Matching, now time.Time) Decision {
	if len(candidates) == 0 {
		return Decision{Disposition: DispositionManual, CreatedAt: now}
	}

	best := candidates[0]
	d := Decision{Best: &best, Score: best.Score, CreatedAt: now}

	switch {
	case best.Score >= cfg.AutoThreshold:
		d.Disposition = DispositionAuto
	case best.Score >= cfg.AssistThreshold:
		d.Disposition = DispositionAssist
	default:
		d.Disposition = DispositionManual
	}

	if len(candidates) > 1 && best.Score-candidates[1].Score <= cfg.TieEpsilon {
		d.Downgraded = true

		switch d.Disposition {
		case DispositionAuto:
			d.Disposition = DispositionAssist
		case DispositionAssist:
			d.Disposition = DispositionManual
		}
	}

	return d
}
