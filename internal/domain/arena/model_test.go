package arena

import (
	"errors"
	"testing"
)

func TestLineupSize_ByFormat(t *testing.T) {
	cases := []struct {
		format Format
		want   int
	}{
		{Format1v1, 1},
		{Format3v3, 3},
		{Format5v5, 5},
	}
	for _, tc := range cases {
		got, err := LineupSize(tc.format)
		if err != nil {
			t.Fatalf("lineup size for %s: %v", tc.format, err)
		}
		if got != tc.want {
			t.Fatalf("format %s: expected %d, got %d", tc.format, tc.want, got)
		}
	}

	if _, err := LineupSize(Format("2v2")); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestValidateCategories(t *testing.T) {
	if err := ValidateCategories([]StatCategory{CategoryPoints, CategoryBlocks}); err != nil {
		t.Fatalf("valid categories rejected: %v", err)
	}
	if err := ValidateCategories(nil); !errors.Is(err, ErrInvalidCategories) {
		t.Fatalf("expected ErrInvalidCategories for empty set, got %v", err)
	}
	if err := ValidateCategories([]StatCategory{CategoryPoints, CategoryPoints}); !errors.Is(err, ErrInvalidCategories) {
		t.Fatalf("expected ErrInvalidCategories for duplicate, got %v", err)
	}
	if err := ValidateCategories([]StatCategory{"TOV"}); !errors.Is(err, ErrInvalidCategories) {
		t.Fatalf("expected ErrInvalidCategories for unknown category, got %v", err)
	}
}

func TestValidateLineup(t *testing.T) {
	lineup := []PlayerSlot{
		{PlayerRef: "p1", TeamRef: "t1"},
		{PlayerRef: "p2", TeamRef: "t1"},
		{PlayerRef: "p3", TeamRef: "t2"},
	}
	if err := ValidateLineup(Format3v3, lineup); err != nil {
		t.Fatalf("valid lineup rejected: %v", err)
	}

	if err := ValidateLineup(Format5v5, lineup); !errors.Is(err, ErrInvalidLineup) {
		t.Fatalf("expected size mismatch error, got %v", err)
	}

	dup := []PlayerSlot{
		{PlayerRef: "p1", TeamRef: "t1"},
		{PlayerRef: "p1", TeamRef: "t1"},
		{PlayerRef: "p3", TeamRef: "t2"},
	}
	if err := ValidateLineup(Format3v3, dup); !errors.Is(err, ErrInvalidLineup) {
		t.Fatalf("expected duplicate player error, got %v", err)
	}
}

func TestValidateWindow(t *testing.T) {
	today := "2026-01-05"
	if err := ValidateWindow("2026-01-05", "2026-01-11", today); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
	if err := ValidateWindow("2026-01-12", "2026-01-11", today); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected inverted window error, got %v", err)
	}
	if err := ValidateWindow("2026-01-04", "2026-01-11", today); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected past start error, got %v", err)
	}
	if err := ValidateWindow("Jan 5 2026", "2026-01-11", today); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestMatchCanAccept(t *testing.T) {
	match := Match{
		ID:           "m1",
		ChallengerID: "user-a",
		Status:       StatusOpen,
	}

	if err := match.CanAccept("user-b", "beta"); err != nil {
		t.Fatalf("open match should be acceptable: %v", err)
	}
	if err := match.CanAccept("user-a", "alpha"); !errors.Is(err, ErrAcceptorIneligible) {
		t.Fatalf("challenger self-accept must fail, got %v", err)
	}

	match.InvitedUsername = "Gamma"
	if err := match.CanAccept("user-b", "gamma"); err != nil {
		t.Fatalf("invited username match must be case-insensitive: %v", err)
	}
	if err := match.CanAccept("user-b", "beta"); !errors.Is(err, ErrAcceptorIneligible) {
		t.Fatalf("uninvited acceptor must fail, got %v", err)
	}

	match.Status = StatusMatched
	if err := match.CanAccept("user-b", "gamma"); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("non-open match must fail with ErrStateConflict, got %v", err)
	}
}

func TestMatchStatusIsTerminal(t *testing.T) {
	terminal := []MatchStatus{StatusSettled, StatusVoided, StatusCancelled}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []MatchStatus{StatusOpen, StatusMatched} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
