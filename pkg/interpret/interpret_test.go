package interpret

import (
	"math"
	"strings"
	"testing"

	"github.com/ML-dev-crypto/village-digital-twin/pkg/confidence"
)

func TestDeltaTable(t *testing.T) {
	tests := []struct {
		name     string
		mode     FailureMode
		delta    float64
		wantRisk string
		wantText string
	}{
		{"demand loss negative", ModeDemandLoss, -0.1, RiskStagnation, "water stagnation risk"},
		{"demand loss positive", ModeDemandLoss, 0.1, RiskLoadRedistribution, "Compensating for lost demand"},
		{"supply cut negative", ModeSupplyCut, -0.1, RiskSupplyIsolation, "Cut off from supply source"},
		{"supply cut positive", ModeSupplyCut, 0.1, RiskPressureSurge, "Pressure redistribution detected"},
		{"contamination negative", ModeContamination, -0.1, RiskBackflow, "backflow contamination risk"},
		{"contamination positive", ModeContamination, 0.1, RiskContaminationSpread, "In contamination spread path"},
		{"control failure negative", ModeControlFailure, -0.1, RiskControlBlindSpot, "Lost monitoring/control visibility"},
		{"control failure positive", ModeControlFailure, 0.1, RiskControlInstability, "Control loop instability detected"},
		{"no mode negative", ModeNone, -0.1, RiskImpactDecrease, "Impact probability decreased"},
		{"no mode positive", ModeNone, 0.1, RiskImpactIncrease, "Impact probability increased"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Delta(tt.delta, "Pump_Station", false, tt.mode, 1.0, false)
			if got.RiskType != tt.wantRisk {
				t.Errorf("RiskType = %q, want %q", got.RiskType, tt.wantRisk)
			}
			if !strings.Contains(got.Explanation, tt.wantText) {
				t.Errorf("Explanation = %q, want it to contain %q", got.Explanation, tt.wantText)
			}
			if !strings.HasPrefix(got.Explanation, "Pump_Station: ") {
				t.Errorf("Explanation = %q, want node name prefix", got.Explanation)
			}
		})
	}
}

func TestDeltaExplanationFormat(t *testing.T) {
	got := Delta(-0.08, "Pipe_A", false, ModeSupplyCut, 1.0, false)
	want := "Pipe_A: Cut off from supply source (Δ-0.08)"
	if got.Explanation != want {
		t.Errorf("Explanation = %q, want %q", got.Explanation, want)
	}

	got = Delta(0.12, "Pump_Station", false, ModeSupplyCut, 1.0, false)
	want = "Pump_Station: Pressure redistribution detected (Δ+0.12)"
	if got.Explanation != want {
		t.Errorf("Explanation = %q, want %q", got.Explanation, want)
	}
}

func TestDeltaFailureSourceSentinel(t *testing.T) {
	// the source reading ignores the node's own numbers entirely
	got := Delta(0.003, "Tank_Main", true, ModeSupplyCut, 0.1, false)

	if got.RiskType != RiskFailureSource {
		t.Errorf("RiskType = %q, want FAILURE_SOURCE", got.RiskType)
	}
	if got.Severity != SeverityCritical {
		t.Errorf("Severity = %q, want critical", got.Severity)
	}
	if got.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", got.Confidence)
	}
	if got.ConfidenceLabel != confidence.LabelHigh {
		t.Errorf("ConfidenceLabel = %q, want high", got.ConfidenceLabel)
	}
	if got.AlertLevel != confidence.AlertCritical {
		t.Errorf("AlertLevel = %q, want critical", got.AlertLevel)
	}
	if got.Explanation != "Tank_Main is the simulated failure point" {
		t.Errorf("Explanation = %q", got.Explanation)
	}
}

func TestDeltaUnaffected(t *testing.T) {
	got := Delta(0.004, "Hospital", false, ModeSupplyCut, 1.0, false)

	if got.RiskType != RiskUnaffected {
		t.Errorf("RiskType = %q, want UNAFFECTED", got.RiskType)
	}
	if got.Severity != SeverityLow {
		t.Errorf("Severity = %q, want low", got.Severity)
	}
	if got.Explanation != "Hospital is not significantly affected" {
		t.Errorf("Explanation = %q", got.Explanation)
	}

	// negative noise reads the same way
	got = Delta(-0.0099, "Hospital", false, ModeDemandLoss, 1.0, false)
	if got.RiskType != RiskUnaffected {
		t.Errorf("RiskType for tiny negative = %q, want UNAFFECTED", got.RiskType)
	}
}

func TestSeverityTiersStandardMode(t *testing.T) {
	tests := []struct {
		delta float64
		want  string
	}{
		{0.04, SeverityLow},
		{0.1, SeverityMedium},
		{0.2, SeverityHigh},
		{0.35, SeverityCritical},
		{-0.2, SeverityHigh}, // magnitude, not sign
	}
	for _, tt := range tests {
		got := Delta(tt.delta, "N", false, ModeNone, 1.0, false)
		if got.Severity != tt.want {
			t.Errorf("Delta(%v) severity = %q, want %q", tt.delta, got.Severity, tt.want)
		}
	}
}

func TestSeverityPessimisticOverride(t *testing.T) {
	t.Run("critical alert wins", func(t *testing.T) {
		// amplified = sqrt(0.2)*2 ≈ 0.894 -> critical alert
		got := Delta(0.2, "N", false, ModeNone, 1.0, true)
		if got.AlertLevel != confidence.AlertCritical {
			t.Fatalf("AlertLevel = %q, want critical", got.AlertLevel)
		}
		if got.Severity != SeverityCritical {
			t.Errorf("Severity = %q, want critical", got.Severity)
		}
	})

	t.Run("high alert maps to high", func(t *testing.T) {
		// amplified = sqrt(0.09)*2 = 0.6 -> high alert
		got := Delta(0.09, "N", false, ModeNone, 1.0, true)
		if got.AlertLevel != confidence.AlertHigh {
			t.Fatalf("AlertLevel = %q, want high", got.AlertLevel)
		}
		if got.Severity != SeverityHigh {
			t.Errorf("Severity = %q, want high", got.Severity)
		}
	})

	t.Run("elevated alert maps to medium", func(t *testing.T) {
		// amplified = sqrt(0.04)*2 = 0.4 -> elevated alert
		got := Delta(0.04, "N", false, ModeNone, 1.0, true)
		if got.AlertLevel != confidence.AlertElevated {
			t.Fatalf("AlertLevel = %q, want elevated", got.AlertLevel)
		}
		if got.Severity != SeverityMedium {
			t.Errorf("Severity = %q, want medium", got.Severity)
		}
	})

	t.Run("negative delta keeps magnitude tier", func(t *testing.T) {
		// amplified = -0.02 -> normal alert, no override; tier from |delta|
		got := Delta(-0.2, "N", false, ModeNone, 1.0, true)
		if got.AlertLevel != confidence.AlertNormal {
			t.Fatalf("AlertLevel = %q, want normal", got.AlertLevel)
		}
		if got.Severity != SeverityHigh {
			t.Errorf("Severity = %q, want high", got.Severity)
		}
	})
}

func TestDeltaConfidencePropagation(t *testing.T) {
	// raw = min(0.2*2, 1) = 0.4; scaled by weight 0.5 = 0.2 -> medium
	got := Delta(0.2, "N", false, ModeSupplyCut, 0.5, false)
	if math.Abs(got.Confidence-0.2) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.2", got.Confidence)
	}
	if got.ConfidenceLabel != confidence.LabelMedium {
		t.Errorf("ConfidenceLabel = %q, want medium", got.ConfidenceLabel)
	}
}

func TestDeltaUnknownModeFallsBackToRaw(t *testing.T) {
	got := Delta(0.1, "N", false, FailureMode("BOGUS"), 1.0, false)
	if got.RiskType != RiskImpactIncrease {
		t.Errorf("RiskType = %q, want IMPACT_INCREASE fallback", got.RiskType)
	}
}

func TestParseFailureMode(t *testing.T) {
	tests := []struct {
		in      string
		want    FailureMode
		wantErr bool
	}{
		{"SUPPLY_CUT", ModeSupplyCut, false},
		{"supply_cut", ModeSupplyCut, false},
		{" demand_loss ", ModeDemandLoss, false},
		{"", ModeNone, false},
		{"NONE", ModeNone, false},
		{"contamination", ModeContamination, false},
		{"control_failure", ModeControlFailure, false},
		{"flood", ModeNone, true},
	}
	for _, tt := range tests {
		got, err := ParseFailureMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFailureMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFailureMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModeContext(t *testing.T) {
	tests := []struct {
		mode FailureMode
		want string
	}{
		{ModeNone, "Raw impact analysis"},
		{ModeDemandLoss, "Demand loss scenario (consumer failure)"},
		{ModeSupplyCut, "Supply cut scenario (source failure)"},
		{ModeContamination, "Contamination scenario (quality issue)"},
		{ModeControlFailure, "Control failure scenario (sensor/valve)"},
	}
	for _, tt := range tests {
		if got := tt.mode.Context(); got != tt.want {
			t.Errorf("Context(%s) = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestModesCoverTable(t *testing.T) {
	for _, m := range Modes() {
		if !m.Valid() {
			t.Errorf("Modes() includes invalid mode %q", m)
		}
		if _, ok := table[m]; !ok {
			t.Errorf("interpretation table missing mode %q", m)
		}
	}
	if len(table) != len(Modes()) {
		t.Errorf("table has %d modes, Modes() has %d", len(table), len(Modes()))
	}
}
