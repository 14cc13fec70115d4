package settings

import (
	"testing"

	"SignalForge/internal/domain/models"
)

func TestPresetsSumToHundred(t *testing.T) {
	for _, name := range PresetNames() {
		w, err := Preset(name)
		if err != nil {
			t.Fatalf("preset %s: %v", name, err)
		}
		if s := w.Sum(); s != 100 {
			t.Fatalf("preset %s sum = %d, want 100", name, s)
		}
	}
}

func TestPresetReturnsClone(t *testing.T) {
	a, err := Preset(PresetMomentum)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	a.Technical = 0
	b, err := Preset(PresetMomentum)
	if err != nil {
		t.Fatalf("preset: %v", err)
	}
	if b.Technical == 0 {
		t.Fatalf("preset table mutated through returned value")
	}
}

func TestPresetUnknownName(t *testing.T) {
	if _, err := Preset("yolo"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
}

func TestNormalizedResidualGoesToLargest(t *testing.T) {
	// Raw sum 6 with uneven split: rounding drift must land on the largest
	// component and the total must still be exactly 100.
	w := models.FusionWeights{Technical: 3, Volume: 1, Patterns: 1, Elliott: 1}
	n := w.Normalized()
	if s := n.Sum(); s != 100 {
		t.Fatalf("sum = %d, want 100", s)
	}
	if n.Technical <= n.Volume {
		t.Fatalf("largest component did not stay largest: %+v", n)
	}
}

func TestNormalizedZeroVector(t *testing.T) {
	n := models.FusionWeights{}.Normalized()
	if s := n.Sum(); s != 100 {
		t.Fatalf("sum = %d, want 100", s)
	}
}
