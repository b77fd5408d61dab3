package safety

import "testing"

func TestOnSensorFailureBelowThresholdSkips(t *testing.T) {
	for prior := 0; prior < MaxConsecutiveFailures-1; prior++ {
		d := OnSensorFailure(prior)
		if d.Action != ActionSkip {
			t.Errorf("prior=%d: got action %v, want ActionSkip", prior, d.Action)
		}
		if d.NewFailureCount != prior+1 {
			t.Errorf("prior=%d: got count %d, want %d", prior, d.NewFailureCount, prior+1)
		}
	}
}

func TestOnSensorFailureAtThresholdShutsDown(t *testing.T) {
	d := OnSensorFailure(MaxConsecutiveFailures - 1)
	if d.Action != ActionShutdown {
		t.Errorf("got action %v, want ActionShutdown", d.Action)
	}
	if d.NewFailureCount != MaxConsecutiveFailures {
		t.Errorf("got count %d, want %d", d.NewFailureCount, MaxConsecutiveFailures)
	}
}

func TestOnSensorFailureStaysShutdownBeyondThreshold(t *testing.T) {
	d := OnSensorFailure(MaxConsecutiveFailures + 3)
	if d.Action != ActionShutdown {
		t.Errorf("got action %v, want ActionShutdown", d.Action)
	}
}

func TestEvaluateHardOvertempShutsDownAndLatches(t *testing.T) {
	d := Evaluate(165, 100)
	if d.Action != ActionShutdown {
		t.Errorf("got action %v, want ActionShutdown", d.Action)
	}
	if d.NewFailureCount != MaxConsecutiveFailures {
		t.Errorf("got count %d, want %d (latched)", d.NewFailureCount, MaxConsecutiveFailures)
	}
	if d.EmergencyLog == "" {
		t.Error("expected an emergency log message")
	}
}

func TestEvaluateAtOrAboveSetpointOverridesZero(t *testing.T) {
	d := Evaluate(100, 100)
	if d.Action != ActionOverrideZero {
		t.Errorf("got action %v, want ActionOverrideZero", d.Action)
	}
	if d.NewFailureCount != 0 {
		t.Errorf("got count %d, want 0", d.NewFailureCount)
	}
}

func TestEvaluateExtremeOvershootLogsButStillZero(t *testing.T) {
	d := Evaluate(111, 100)
	if d.Action != ActionOverrideZero {
		t.Errorf("got action %v, want ActionOverrideZero", d.Action)
	}
	if d.EmergencyLog == "" {
		t.Error("expected an emergency log for t > target+10")
	}
}

func TestEvaluateOvershootJustUnderLogThreshold(t *testing.T) {
	d := Evaluate(110, 100)
	if d.EmergencyLog != "" {
		t.Errorf("expected no emergency log at exactly target+10, got %q", d.EmergencyLog)
	}
}

func TestEvaluateNominal(t *testing.T) {
	d := Evaluate(90, 100)
	if d.Action != ActionNominal {
		t.Errorf("got action %v, want ActionNominal", d.Action)
	}
}

func TestHardOvertempTakesPriorityOverSetpointRule(t *testing.T) {
	// 165 is both > MaxSafeTemp and > target, but rule 2 must win over
	// rule 3 (first match wins, spec.md §4.4).
	d := Evaluate(165, 100)
	if d.Action != ActionShutdown {
		t.Errorf("got action %v, want ActionShutdown (rule 2 precedence)", d.Action)
	}
}
