package engine

import (
	"errors"
	"fmt"

	"github.com/dnldd/edge/shared"
	"github.com/dnldd/edge/structure"
)

const (
	// DefaultBaseConfidence is the default confidence floor every candidate starts from.
	DefaultBaseConfidence = 0.3
	// DefaultKillzoneBonus is the default confidence bonus for killzone activity.
	DefaultKillzoneBonus = 0.1
	// DefaultOverlapBonus is the default confidence bonus for session overlap.
	DefaultOverlapBonus = 0.05
	// DefaultStructureWeight is the default weight of structural strength.
	DefaultStructureWeight = 0.2
	// DefaultVolumeWeight is the default weight of volume confirmation.
	DefaultVolumeWeight = 0.15
	// DefaultTrendWeight is the default weight of trend alignment.
	DefaultTrendWeight = 0.15
	// DefaultPatternBonus is the default per-pattern confidence bonus.
	DefaultPatternBonus = 0.02
	// DefaultMaxPatternBonus is the default cap on the pattern-count bonus.
	DefaultMaxPatternBonus = 0.1
	// DefaultQualityMultiplier is the default scale applied to the summed confidence.
	DefaultQualityMultiplier = 0.9
	// DefaultConfidenceThreshold is the default minimum confidence for acceptance.
	DefaultConfidenceThreshold = 0.6
	// DefaultConfluenceThreshold is the default minimum confluence for acceptance.
	DefaultConfluenceThreshold = 0.5
	// DefaultMinVolumeRatio is the default volume ratio considered confirming.
	DefaultMinVolumeRatio = 1.3

	// maxConfidence caps confidence below certainty.
	maxConfidence = 0.98
)

// ScorerConfig represents the signal scorer configuration.
type ScorerConfig struct {
	// BaseConfidence is the confidence floor every candidate starts from.
	BaseConfidence float64
	// KillzoneBonus is the confidence bonus for killzone activity.
	KillzoneBonus float64
	// OverlapBonus is the confidence bonus for session overlap.
	OverlapBonus float64
	// StructureWeight is the weight of structural strength.
	StructureWeight float64
	// VolumeWeight is the weight of volume confirmation.
	VolumeWeight float64
	// TrendWeight is the weight of trend alignment.
	TrendWeight float64
	// PatternBonus is the per-pattern confidence bonus for aligned order blocks
	// and fair value gaps.
	PatternBonus float64
	// MaxPatternBonus caps the pattern-count bonus.
	MaxPatternBonus float64
	// QualityMultiplier scales the summed confidence.
	QualityMultiplier float64
	// ConfidenceThreshold is the minimum confidence for acceptance.
	ConfidenceThreshold float64
	// ConfluenceThreshold is the minimum confluence for acceptance.
	ConfluenceThreshold float64
	// MinVolumeRatio is the volume-to-average ratio considered confirming.
	MinVolumeRatio float64
}

// Validate asserts the config has sane inputs, applying defaults for unset fields.
func (cfg *ScorerConfig) Validate() error {
	var errs error

	if cfg.BaseConfidence == 0 {
		cfg.BaseConfidence = DefaultBaseConfidence
	}
	if cfg.KillzoneBonus == 0 {
		cfg.KillzoneBonus = DefaultKillzoneBonus
	}
	if cfg.OverlapBonus == 0 {
		cfg.OverlapBonus = DefaultOverlapBonus
	}
	if cfg.StructureWeight == 0 {
		cfg.StructureWeight = DefaultStructureWeight
	}
	if cfg.VolumeWeight == 0 {
		cfg.VolumeWeight = DefaultVolumeWeight
	}
	if cfg.TrendWeight == 0 {
		cfg.TrendWeight = DefaultTrendWeight
	}
	if cfg.PatternBonus == 0 {
		cfg.PatternBonus = DefaultPatternBonus
	}
	if cfg.MaxPatternBonus == 0 {
		cfg.MaxPatternBonus = DefaultMaxPatternBonus
	}
	if cfg.QualityMultiplier == 0 {
		cfg.QualityMultiplier = DefaultQualityMultiplier
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.ConfluenceThreshold == 0 {
		cfg.ConfluenceThreshold = DefaultConfluenceThreshold
	}
	if cfg.MinVolumeRatio == 0 {
		cfg.MinVolumeRatio = DefaultMinVolumeRatio
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		errs = errors.Join(errs, fmt.Errorf("confidence threshold out of range: %f", cfg.ConfidenceThreshold))
	}
	if cfg.ConfluenceThreshold < 0 || cfg.ConfluenceThreshold > 1 {
		errs = errors.Join(errs, fmt.Errorf("confluence threshold out of range: %f", cfg.ConfluenceThreshold))
	}

	return errs
}

// Score represents the scored outcome of a structural snapshot.
type Score struct {
	Direction  shared.Direction
	Confidence float64
	Confluence float64
	Reasons    []shared.Reason
	Accepted   bool
}

// Scorer converts structural snapshots with their time-of-day and volume context
// into scored trade candidates. Scoring is a pure function, identical inputs
// always yield an identical score.
type Scorer struct {
	cfg *ScorerConfig
}

// NewScorer initializes a new signal scorer.
func NewScorer(cfg *ScorerConfig) (*Scorer, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	return &Scorer{cfg: cfg}, nil
}

// strengthValue maps structural strength to a score contribution.
func strengthValue(strength structure.Strength) float64 {
	switch strength {
	case structure.Strong:
		return 1.0
	case structure.Moderate:
		return 0.6
	default:
		return 0.3
	}
}

// alignedPatternCount returns the number of order blocks and unfilled fair value
// gaps supporting the provided sentiment.
func alignedPatternCount(snapshot *structure.Snapshot, sentiment shared.Sentiment) int {
	var count int
	for idx := range snapshot.OrderBlocks {
		if snapshot.OrderBlocks[idx].Sentiment == sentiment {
			count++
		}
	}
	for idx := range snapshot.FairValueGaps {
		if snapshot.FairValueGaps[idx].Sentiment == sentiment {
			count++
		}
	}

	return count
}

// Evaluate scores the provided snapshot in its session and volume context. A nil
// score is returned when the market is ranging. The momentum sentiment is that
// of the most recent candle. It casts a directional vote alongside the trend,
// but with two voters and ties resolving to the trend it can never override
// the trend bias, so direction always follows the trend.
func (s *Scorer) Evaluate(snapshot *structure.Snapshot, session *shared.SessionContext,
	volumeRatio float64, momentum shared.Sentiment) *Score {
	trendBias := snapshot.SentimentBias()
	if trendBias == shared.Neutral {
		// A ranging market yields no direction to trade.
		return nil
	}

	volumeConfirmed := volumeRatio >= s.cfg.MinVolumeRatio

	var direction shared.Direction
	switch trendBias {
	case shared.Bullish:
		direction = shared.Long
	default:
		direction = shared.Short
	}

	reasons := []shared.Reason{shared.TrendAlignment}

	confidence := s.cfg.BaseConfidence
	if session.Killzone {
		confidence += s.cfg.KillzoneBonus
		reasons = append(reasons, shared.KillzoneActive)
	}
	if session.Overlap {
		confidence += s.cfg.OverlapBonus
		reasons = append(reasons, shared.SessionOverlap)
	}

	structural := strengthValue(snapshot.Strength)
	confidence += structural * s.cfg.StructureWeight
	if snapshot.Strength == structure.Strong {
		reasons = append(reasons, shared.StrongStructure)
	}

	if volumeConfirmed {
		confidence += s.cfg.VolumeWeight
		reasons = append(reasons, shared.StrongVolume)
	}

	// Direction always follows the trend, so trend alignment contributes fully.
	confidence += s.cfg.TrendWeight

	patterns := alignedPatternCount(snapshot, trendBias)
	patternBonus := float64(patterns) * s.cfg.PatternBonus
	if patternBonus > s.cfg.MaxPatternBonus {
		patternBonus = s.cfg.MaxPatternBonus
	}
	confidence += patternBonus
	if patterns > 0 {
		for idx := range snapshot.OrderBlocks {
			if snapshot.OrderBlocks[idx].Sentiment == trendBias {
				reasons = append(reasons, shared.OrderBlockConfluence)
				break
			}
		}
		for idx := range snapshot.FairValueGaps {
			if snapshot.FairValueGaps[idx].Sentiment == trendBias {
				reasons = append(reasons, shared.FairValueGapConfluence)
				break
			}
		}
	}

	confidence *= s.cfg.QualityMultiplier
	if confidence > maxConfidence {
		confidence = maxConfidence
	}
	if confidence < 0 {
		confidence = 0
	}

	// Confluence blends the independent agreement of structure, time-of-day and
	// volume separately from confidence.
	confluence := structural * 0.3
	if session.Killzone {
		confluence += 0.2
	}
	if session.Session != "" {
		confluence += 0.15
	}
	if volumeConfirmed {
		confluence += 0.2
	}
	confluence += 0.15
	if confluence > 1 {
		confluence = 1
	}

	score := &Score{
		Direction:  direction,
		Confidence: confidence,
		Confluence: confluence,
		Reasons:    reasons,
		Accepted:   confidence >= s.cfg.ConfidenceThreshold && confluence >= s.cfg.ConfluenceThreshold,
	}

	return score
}
