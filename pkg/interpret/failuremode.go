package interpret

import (
	"fmt"
	"strings"
)

// FailureMode is the semantic context of a simulated failure. The same delta
// reads differently under different modes: a drop in impact probability
// after a supply cut means isolation, after a demand loss it means
// stagnating load.
type FailureMode string

// Recognized failure modes
const (
	ModeNone           FailureMode = "NONE"
	ModeDemandLoss     FailureMode = "DEMAND_LOSS"
	ModeSupplyCut      FailureMode = "SUPPLY_CUT"
	ModeContamination  FailureMode = "CONTAMINATION"
	ModeControlFailure FailureMode = "CONTROL_FAILURE"
)

// Modes lists every recognized failure mode.
func Modes() []FailureMode {
	return []FailureMode{
		ModeNone,
		ModeDemandLoss,
		ModeSupplyCut,
		ModeContamination,
		ModeControlFailure,
	}
}

// Valid reports whether the mode is one of the recognized values.
func (m FailureMode) Valid() bool {
	switch m {
	case ModeNone, ModeDemandLoss, ModeSupplyCut, ModeContamination, ModeControlFailure:
		return true
	}
	return false
}

// Context returns the scenario framing used in report summaries.
func (m FailureMode) Context() string {
	switch m {
	case ModeDemandLoss:
		return "Demand loss scenario (consumer failure)"
	case ModeSupplyCut:
		return "Supply cut scenario (source failure)"
	case ModeContamination:
		return "Contamination scenario (quality issue)"
	case ModeControlFailure:
		return "Control failure scenario (sensor/valve)"
	default:
		return "Raw impact analysis"
	}
}

// ParseFailureMode converts a case-insensitive mode name ("supply_cut",
// "SUPPLY_CUT") to a FailureMode. Empty input means ModeNone.
func ParseFailureMode(s string) (FailureMode, error) {
	if s == "" {
		return ModeNone, nil
	}
	m := FailureMode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return ModeNone, fmt.Errorf("unknown failure mode %q", s)
	}
	return m, nil
}
