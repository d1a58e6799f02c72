package ids

import (
	"testing"

	"github.com/courtside/leaguecore/internal/domain"
)

func TestNormalizePlayerID(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		strict      bool
		allowLegacy bool
		want        string
		wantErr     bool
	}{
		{name: "canonical", input: "P000123", strict: true, want: "P000123"},
		{name: "lowercase canonical", input: "p000123", strict: true, want: "P000123"},
		{name: "whitespace trimmed", input: " P000001 ", strict: true, want: "P000001"},
		{name: "legacy numeric accepted", input: "123", allowLegacy: true, want: "P000123"},
		{name: "legacy numeric rejected in strict", input: "123", strict: true, wantErr: true},
		{name: "legacy numeric rejected without flag", input: "123", wantErr: true},
		{name: "legacy out of range", input: "1234567", allowLegacy: true, wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "PX123", allowLegacy: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePlayerID(tt.input, tt.strict, tt.allowLegacy)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if domain.CodeOf(err) != domain.ErrInvalidPlayerID {
					t.Errorf("expected INVALID_PLAYER_ID, got %s", domain.CodeOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTeamID(t *testing.T) {
	if _, err := NormalizeTeamID("FA", true, false); err == nil {
		t.Error("FA must be rejected when not allowed")
	}
	got, err := NormalizeTeamID("fa", true, true)
	if err != nil || got != "FA" {
		t.Errorf("FA allowed: got %q, %v", got, err)
	}
	got, err = NormalizeTeamID("atl", true, false)
	if err != nil || got != "ATL" {
		t.Errorf("ATL: got %q, %v", got, err)
	}
	if _, err := NormalizeTeamID("ZZZ", true, false); err == nil {
		t.Error("unknown team must fail in strict mode")
	}
	if _, err := NormalizeTeamID("ZZZ", false, false); err != nil {
		t.Errorf("non-strict mode accepts well-formed codes: %v", err)
	}
}

func TestPickIDs(t *testing.T) {
	id := MakePickID(2026, 1, "ATL")
	if id != "2026_R1_ATL" {
		t.Fatalf("MakePickID: %q", id)
	}
	p, err := ParsePickID(id)
	if err != nil {
		t.Fatalf("ParsePickID: %v", err)
	}
	if p.Year != 2026 || p.Round != 1 || p.OriginalTeam != "ATL" {
		t.Errorf("parsed %+v", p)
	}
	if _, err := ParsePickID("2026_R3_ATL"); err == nil {
		t.Error("round 3 must fail")
	}
	if _, err := NormalizePickID("2026_R1_ZZZ"); err == nil {
		t.Error("unknown team must fail")
	}
}

func TestSwapIDs(t *testing.T) {
	a, b := "2026_R1_ATL", "2026_R1_BOS"
	if ComputeSwapPairKey(a, b) != ComputeSwapPairKey(b, a) {
		t.Error("pair key must be order independent")
	}
	want := "SWAP_2026_R1_ATL__2026_R1_BOS"
	if got := ComputeSwapID(b, a); got != want {
		t.Errorf("swap id %q, want %q", got, want)
	}
}

func TestSeasonID(t *testing.T) {
	if got := SeasonIDFromYear(2025); got != "2025-26" {
		t.Errorf("2025 -> %q", got)
	}
	if got := SeasonIDFromYear(1999); got != "1999-00" {
		t.Errorf("1999 -> %q", got)
	}
	y, err := YearFromSeasonID("2025-26")
	if err != nil || y != 2025 {
		t.Errorf("parse: %d, %v", y, err)
	}
	if _, err := YearFromSeasonID("2025-27"); err == nil {
		t.Error("mismatched trailing digits must fail")
	}
}

func TestAssertUniqueIDs(t *testing.T) {
	if err := AssertUniqueIDs([]string{"A", "B", "C"}, "team"); err != nil {
		t.Errorf("unique set: %v", err)
	}
	err := AssertUniqueIDs([]string{"A", "B", "A"}, "team")
	if err == nil {
		t.Fatal("duplicates must fail")
	}
	if domain.CodeOf(err) != domain.ErrInvalidInput {
		t.Errorf("code %s", domain.CodeOf(err))
	}
}
