package appointment

import (
	"strings"
	"testing"
	"time"

	"github.com/hackgods/clinic-appointment-scheduling/internal/calendar"
)

func TestNewReference_Format(t *testing.T) {
	issued := calendar.NewDate(2026, time.October, 15)
	seen := make(map[string]bool)

	for i := 0; i < 200; i++ {
		ref, err := NewReference(issued)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(ref) != 17 {
			t.Fatalf("reference %q has length %d", ref, len(ref))
		}
		if !strings.HasPrefix(ref, "APT20261015") {
			t.Fatalf("reference %q has wrong prefix", ref)
		}
		if !ValidReference(ref) {
			t.Fatalf("reference %q does not match the published format", ref)
		}
		seen[ref] = true
	}

	// 36^6 codes per day; 200 draws colliding would mean a broken source.
	if len(seen) < 195 {
		t.Errorf("suspiciously many duplicates: %d unique of 200", len(seen))
	}
}

func TestValidReference(t *testing.T) {
	for code, want := range map[string]bool{
		"APT20261015AB12CD": true,
		"APT20261015ab12cd": false,
		"APT2026101AB12CD":  false,
		"XYZ20261015AB12CD": false,
		"APT20261015AB12C":  false,
	} {
		if got := ValidReference(code); got != want {
			t.Errorf("ValidReference(%q) = %v, want %v", code, got, want)
		}
	}
}
