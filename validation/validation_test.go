package validation

import (
	"strings"
	"testing"
)

func TestStringLength(t *testing.T) {
	if err := StringLength("Pelada de quinta", "name", NameMinLength, NameMaxLength); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := StringLength("", "name", NameMinLength, NameMaxLength); err == nil {
		t.Fatal("empty required name accepted")
	} else if err.Code != CodeRequiredField {
		t.Fatalf("code = %s, want REQUIRED_FIELD", err.Code)
	}
	if err := StringLength("", "description", 0, DescriptionMaxLength); err != nil {
		t.Fatalf("empty optional field rejected: %v", err)
	}
	if err := StringLength("x", "name", NameMinLength, NameMaxLength); err == nil {
		t.Fatal("too-short name accepted")
	} else if err.Code != CodeInvalidLength {
		t.Fatalf("code = %s, want INVALID_LENGTH", err.Code)
	}
	if err := StringLength(strings.Repeat("a", 101), "name", NameMinLength, NameMaxLength); err == nil {
		t.Fatal("too-long name accepted")
	}
}

func TestStringLength_CountsRunes(t *testing.T) {
	// 2 runes, 8 bytes
	if err := StringLength("⚽⚽", "name", 2, 2); err != nil {
		t.Fatalf("rune-length value rejected: %v", err)
	}
}

func TestEmail(t *testing.T) {
	if err := Email("player@futeba.com.br", "email"); err != nil {
		t.Fatalf("valid email rejected: %v", err)
	}
	if err := Email("", "email"); err != nil {
		t.Fatalf("empty optional email rejected: %v", err)
	}
	for _, bad := range []string{"not-an-email", "a@b", "@futeba.com", "user@.com"} {
		err := Email(bad, "email")
		if err == nil {
			t.Fatalf("invalid email %q accepted", bad)
		}
		if err.Code != CodeInvalidEmail {
			t.Fatalf("code = %s, want INVALID_EMAIL", err.Code)
		}
	}
}

func TestRatingBounds(t *testing.T) {
	if err := PlayerRating(4.5, "rating"); err != nil {
		t.Fatalf("valid rating rejected: %v", err)
	}
	if err := PlayerRating(5.1, "rating"); err == nil {
		t.Fatal("rating above 5.0 accepted")
	}
	if err := PlayerRating(-0.1, "rating"); err == nil {
		t.Fatal("negative rating accepted")
	}
	if err := LeagueRating(100, "league_rating"); err != nil {
		t.Fatalf("boundary league rating rejected: %v", err)
	}
	if err := LeagueRating(100.5, "league_rating"); err == nil {
		t.Fatal("league rating above 100 accepted")
	}
	if err := Level(10, "level"); err != nil {
		t.Fatalf("max level rejected: %v", err)
	}
	if err := Level(11, "level"); err == nil {
		t.Fatal("level above cap accepted")
	}
}

func TestScore(t *testing.T) {
	if err := Score(7, "score"); err != nil {
		t.Fatalf("valid score rejected: %v", err)
	}
	if err := Score(-1, "score"); err == nil {
		t.Fatal("negative score accepted")
	} else if err.Code != CodeNegativeValue {
		t.Fatalf("code = %s, want NEGATIVE_VALUE", err.Code)
	}
	if err := Score(101, "score"); err == nil {
		t.Fatal("score above cap accepted")
	} else if err.Code != CodeAntiCheatViolation {
		t.Fatalf("code = %s, want ANTI_CHEAT_VIOLATION", err.Code)
	}

	if got := ClampScore(-3); got != 0 {
		t.Fatalf("ClampScore(-3) = %d, want 0", got)
	}
	if got := ClampScore(150); got != MaxScore {
		t.Fatalf("ClampScore(150) = %d, want %d", got, MaxScore)
	}
}

func TestGameStats_AntiCheatCeilings(t *testing.T) {
	if errs := GameStats(15, 10, 30); len(errs) != 0 {
		t.Fatalf("boundary stats rejected: %v", errs)
	}
	errs := GameStats(16, 11, 31)
	if len(errs) != 3 {
		t.Fatalf("errors = %d, want 3", len(errs))
	}
	for _, err := range errs {
		if err.Code != CodeAntiCheatViolation {
			t.Fatalf("code = %s, want ANTI_CHEAT_VIOLATION", err.Code)
		}
	}

	errs = GameStats(-1, 0, 0)
	if len(errs) != 1 {
		t.Fatalf("errors = %d, want 1", len(errs))
	}
	if errs[0].Code != CodeNegativeValue {
		t.Fatalf("code = %s, want NEGATIVE_VALUE", errs[0].Code)
	}
}

func TestXpGainAndCap(t *testing.T) {
	if err := XpGain(500); err != nil {
		t.Fatalf("boundary xp rejected: %v", err)
	}
	if err := XpGain(501); err == nil {
		t.Fatal("xp above cap accepted")
	}
	if err := XpGain(-1); err == nil {
		t.Fatal("negative xp accepted")
	}
	if got := CapXP(9999); got != MaxXpPerGame {
		t.Fatalf("CapXP(9999) = %d, want %d", got, MaxXpPerGame)
	}
	if got := CapXP(-5); got != 0 {
		t.Fatalf("CapXP(-5) = %d, want 0", got)
	}
}

func TestNormalizeLeagueRating(t *testing.T) {
	if got := NormalizeLeagueRating(-10); got != 0 {
		t.Fatalf("NormalizeLeagueRating(-10) = %v, want 0", got)
	}
	if got := NormalizeLeagueRating(140); got != 100 {
		t.Fatalf("NormalizeLeagueRating(140) = %v, want 100", got)
	}
	if got := NormalizeLeagueRating(42.5); got != 42.5 {
		t.Fatalf("NormalizeLeagueRating(42.5) = %v, want 42.5", got)
	}
}

func TestMinPlayers(t *testing.T) {
	if err := MinPlayers(6); err != nil {
		t.Fatalf("minimum player count rejected: %v", err)
	}
	if err := MinPlayers(5); err == nil {
		t.Fatal("under-minimum player count accepted")
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<script>alert(1)</script>hello", "alert(1)hello"},
		{"<scr<script>ipt>alert(1)</script>", "alert(1)"},
		{"javascript:alert(1)", "alert(1)"},
		{"JAVASCRIPT : alert(1)", "alert(1)"},
		{"a&nbsp;b", "a b"},
		{"zero​width", "zerowidth"},
		{"  spaced   out  ", "spaced out"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Fatalf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeAndValidateText(t *testing.T) {
	got, err := SanitizeAndValidateText("<b>Pelada</b> de quinta", "name", NameMaxLength)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Pelada de quinta" {
		t.Fatalf("sanitized = %q, want %q", got, "Pelada de quinta")
	}

	_, err = SanitizeAndValidateText(strings.Repeat("a", 600), "description", DescriptionMaxLength)
	if err == nil {
		t.Fatal("oversized text accepted")
	}
	if err.Code != CodeInvalidLength {
		t.Fatalf("code = %s, want INVALID_LENGTH", err.Code)
	}
}

func TestCombineAndFormat(t *testing.T) {
	var nilErr *ValidationError
	errs := Combine(
		Score(-1, "score_a"),
		Score(3, "score_b"),
		GameStats(20, 0, 0),
		nilErr,
		nil,
	)
	if len(errs) != 2 {
		t.Fatalf("combined errors = %d, want 2", len(errs))
	}
	if !HasErrors(errs) {
		t.Fatal("HasErrors = false, want true")
	}

	formatted := Format(errs)
	if !strings.Contains(formatted, "[NEGATIVE_VALUE] score_a") {
		t.Fatalf("formatted = %q, missing score error", formatted)
	}
	if !strings.Contains(formatted, "; ") {
		t.Fatalf("formatted = %q, want semicolon-joined parts", formatted)
	}

	if HasErrors(Combine(Score(1, "a"), Score(2, "b"))) {
		t.Fatal("HasErrors = true for valid inputs")
	}
}
