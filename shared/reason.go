package shared

// Reason represents an entry or exit reason.
type Reason int

const (
	TargetHit Reason = iota
	StopLossHit
	MaxHoldExceeded
	PartialTargetHit
	TrendAlignment
	StrongVolume
	StrongStructure
	KillzoneActive
	SessionOverlap
	OrderBlockConfluence
	FairValueGapConfluence
	LiquiditySweepReversal
	StructureBreak
)

// String stringifies the provided reason.
func (r Reason) String() string {
	switch r {
	case TargetHit:
		return "target hit"
	case StopLossHit:
		return "stoploss hit"
	case MaxHoldExceeded:
		return "max hold exceeded"
	case PartialTargetHit:
		return "partial target hit"
	case TrendAlignment:
		return "trend alignment"
	case StrongVolume:
		return "strong volume"
	case StrongStructure:
		return "strong structure"
	case KillzoneActive:
		return "killzone active"
	case SessionOverlap:
		return "session overlap"
	case OrderBlockConfluence:
		return "order block confluence"
	case FairValueGapConfluence:
		return "fair value gap confluence"
	case LiquiditySweepReversal:
		return "liquidity sweep reversal"
	case StructureBreak:
		return "structure break"
	default:
		return "unknown"
	}
}

// Direction represents market direction.
type Direction int

const (
	Long Direction = iota
	Short
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}
