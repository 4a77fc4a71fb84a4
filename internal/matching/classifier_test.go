package matching_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/matching"
)

func scored(score float64, externalID string) matching.Candidate {
	c := matching.Candidate{Score: score}
	c.Transaction.ExternalID = externalID

	return c
}

func TestClassify_ThresholdBoundaries(t *testing.T) {
	cfg := testConfig() // auto=85, assist=65

	tests := []struct {
		name  string
		score float64
		want  matching.Disposition
	}{
		{"ExactlyAtAuto", 85, matching.DispositionAuto},
		{"OneBelowAuto", 84, matching.DispositionAssist},
		{"ExactlyAtAssist", 65, matching.DispositionAssist},
		{"BelowAssist", 64.9, matching.DispositionManual},
		{"Zero", 0, matching.DispositionManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := matching.Classify([]matching.Candidate{scored(tt.score, "1")}, cfg, time.Now())
			assert.Equal(t, tt.want, d.Disposition)
			assert.False(t, d.Downgraded)
			assert.Equal(t, tt.score, d.Score)
		})
	}
}

func TestClassify_NoCandidatesIsManual(t *testing.T) {
	d := matching.Classify(nil, testConfig(), time.Now())

	assert.Equal(t, matching.DispositionManual, d.Disposition)
	assert.Nil(t, d.Best)
}

func TestClassify_TieBreakDowngrades(t *testing.T) {
	cfg := testConfig()

	tests := []struct {
		name   string
		best   float64
		second float64
		want   matching.Disposition
	}{
		{"AmbiguousAutoBecomesAssist", 90, 87, matching.DispositionAssist},
		{"AmbiguousAssistBecomesManual", 70, 68, matching.DispositionManual},
		{"ClearGapStaysAuto", 90, 70, matching.DispositionAuto},
		{"GapExactlyEpsilonDowngrades", 90, 85, matching.DispositionAssist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := matching.Classify([]matching.Candidate{
				scored(tt.best, "1"),
				scored(tt.second, "2"),
			}, cfg, time.Now())

			assert.Equal(t, tt.want, d.Disposition)
		})
	}
}

func TestClassify_AmbiguityNeverAutoApplies(t *testing.T) {
	cfg := testConfig()

	// Both candidates clear the auto threshold; neither may auto-apply.
	d := matching.Classify([]matching.Candidate{
		scored(95, "1"),
		scored(93, "2"),
	}, cfg, time.Now())

	assert.NotEqual(t, matching.DispositionAuto, d.Disposition)
	assert.True(t, d.Downgraded)
}

func TestClassify_DowngradeIsExactlyOneTier(t *testing.T) {
	cfg := testConfig()

	d := matching.Classify([]matching.Candidate{
		scored(95, "1"),
		scored(94, "2"),
	}, cfg, time.Now())

	// AUTO downgrades to ASSIST, never straight to MANUAL.
	assert.Equal(t, matching.DispositionAssist, d.Disposition)
}
