package engine

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"A PAR", Unit{Army, "PAR", "FRANCE"}, false},
		{"f lon", Unit{Fleet, "LON", "FRANCE"}, false},
		{"F STP/SC", Unit{Fleet, "STP/SC", "FRANCE"}, false},
		{"army bur", Unit{Army, "BUR", "FRANCE"}, false},
		{"X PAR", Unit{}, true},
		{"A", Unit{}, true},
		{"A PAR H", Unit{}, true},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in, "FRANCE")
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseUnit(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseUnit(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUnit(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestUnitIDAndRegion(t *testing.T) {
	u := Unit{Type: Fleet, Location: "STP/SC", Owner: "RUSSIA"}
	if u.ID() != "F STP/SC" {
		t.Errorf("ID = %q", u.ID())
	}
	if u.Region() != "STP" {
		t.Errorf("Region = %q", u.Region())
	}
	if (Unit{}).IsZero() != true || u.IsZero() {
		t.Error("IsZero mismatch")
	}
}

func TestCanEnter(t *testing.T) {
	tests := []struct {
		ut   UnitType
		kind RegionKind
		want bool
	}{
		{Army, Land, true},
		{Army, Coastal, true},
		{Army, Sea, false},
		{Fleet, Land, false},
		{Fleet, Coastal, true},
		{Fleet, Sea, true},
	}
	for _, tt := range tests {
		if got := CanEnter(tt.ut, tt.kind); got != tt.want {
			t.Errorf("CanEnter(%s, %s) = %v, want %v", tt.ut, tt.kind, got, tt.want)
		}
	}
}

func TestParseRegionKind(t *testing.T) {
	for in, want := range map[string]RegionKind{"land": Land, "Coastal": Coastal, "SEA": Sea} {
		got, err := ParseRegionKind(in)
		if err != nil || got != want {
			t.Errorf("ParseRegionKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRegionKind("swamp"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestRejectionErrorVerbatim(t *testing.T) {
	var err error = &RejectionError{Op: "setorders", Party: "FRANCE", Reason: "Invalid order: A PAR ???"}
	wrapped := fmt.Errorf("submit: %w", err)

	if !IsRejection(wrapped) {
		t.Fatal("expected wrapped error to be a rejection")
	}
	if !errors.Is(wrapped, ErrRejected) {
		t.Fatal("expected errors.Is ErrRejected")
	}
	if Reason(wrapped) != "Invalid order: A PAR ???" {
		t.Errorf("Reason = %q", Reason(wrapped))
	}
	if Reason(errors.New("boom")) != "boom" {
		t.Error("Reason should fall back to Error()")
	}
}
