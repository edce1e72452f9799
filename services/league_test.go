package services

import (
	"math"
	"testing"

	"futeba-gamification-system/models"
)

func TestCalculateLeagueRating_EmptyWindow(t *testing.T) {
	if got := CalculateLeagueRating(nil); got != 0 {
		t.Fatalf("rating for empty window = %v, want 0", got)
	}
}

func TestCalculateLeagueRating_PerfectWindow(t *testing.T) {
	games := make([]models.LeagueGame, 10)
	for i := range games {
		games[i] = models.LeagueGame{XpEarned: 500, Won: true, GoalDiff: 3, WasMvp: true}
	}
	got := CalculateLeagueRating(games)
	// Float accumulation lands a hair under 100; only the clamp to [0,100]
	// is exact.
	if math.Abs(got-100) > 1e-9 {
		t.Fatalf("rating for perfect window = %v, want 100", got)
	}
}

func TestCalculateLeagueRating_BoundsOnExtremeInput(t *testing.T) {
	games := []models.LeagueGame{
		{XpEarned: 99999, Won: true, GoalDiff: 50, WasMvp: true},
		{XpEarned: -99999, Won: false, GoalDiff: -50, WasMvp: false},
	}
	got := CalculateLeagueRating(games)
	if got < 0 || got > 100 {
		t.Fatalf("rating out of bounds: %v", got)
	}
}

func TestCalculateLeagueRating_AverageLoss(t *testing.T) {
	// One loss, no stats: only the goal-diff component contributes.
	// diffScore = clamp((0+3)/6) = 0.5, weighted 0.2, gives 10.
	games := []models.LeagueGame{{XpEarned: 0, Won: false, GoalDiff: 0, WasMvp: false}}
	got := CalculateLeagueRating(games)
	if got != 10 {
		t.Fatalf("rating = %v, want 10", got)
	}
}

func TestGetDivisionForRating(t *testing.T) {
	tests := []struct {
		rating float64
		want   string
	}{
		{0, models.DivisionBronze},
		{29.9, models.DivisionBronze},
		{30, models.DivisionPrata},
		{49.9, models.DivisionPrata},
		{50, models.DivisionOuro},
		{69.9, models.DivisionOuro},
		{70, models.DivisionDiamante},
		{100, models.DivisionDiamante},
	}
	for _, tt := range tests {
		if got := GetDivisionForRating(tt.rating); got != tt.want {
			t.Fatalf("GetDivisionForRating(%v) = %s, want %s", tt.rating, got, tt.want)
		}
	}
}

func TestCalculateLeaguePromotion_ThreeConsecutiveGamesPromote(t *testing.T) {
	state := LeagueState{Division: models.DivisionBronze}

	for i := 0; i < 2; i++ {
		result := CalculateLeaguePromotion(state, 35, DefaultLeagueConfig)
		if result.Promoted {
			t.Fatalf("promoted after %d game(s), want 3", i+1)
		}
		if result.NewState.PromotionProgress != i+1 {
			t.Fatalf("promotion progress = %d, want %d", result.NewState.PromotionProgress, i+1)
		}
		state = result.NewState
	}

	result := CalculateLeaguePromotion(state, 35, DefaultLeagueConfig)
	if !result.Promoted {
		t.Fatal("expected promotion on third qualifying game")
	}
	if result.NewState.Division != models.DivisionPrata {
		t.Fatalf("division = %s, want PRATA", result.NewState.Division)
	}
	if result.NewState.PromotionProgress != 0 {
		t.Fatalf("promotion progress after promotion = %d, want 0", result.NewState.PromotionProgress)
	}
	if result.NewState.ProtectionGames != 5 {
		t.Fatalf("protection games = %d, want 5", result.NewState.ProtectionGames)
	}
	if result.PreviousDivision != models.DivisionBronze {
		t.Fatalf("previous division = %s, want BRONZE", result.PreviousDivision)
	}

	// a strong game right after promotion burns protection, not progress
	next := CalculateLeaguePromotion(result.NewState, 99, DefaultLeagueConfig)
	if next.NewState.PromotionProgress != 0 {
		t.Fatalf("promotion progress under protection = %d, want 0", next.NewState.PromotionProgress)
	}
	if next.NewState.ProtectionGames != 4 {
		t.Fatalf("protection games = %d, want 4", next.NewState.ProtectionGames)
	}
}

func TestCalculateLeaguePromotion_ProtectionSuppressesProgress(t *testing.T) {
	state := LeagueState{
		Division:        models.DivisionPrata,
		ProtectionGames: 5,
	}
	result := CalculateLeaguePromotion(state, 99, DefaultLeagueConfig)
	if result.Promoted || result.Relegated {
		t.Fatal("protected player must not change division")
	}
	if result.NewState.ProtectionGames != 4 {
		t.Fatalf("protection games = %d, want 4", result.NewState.ProtectionGames)
	}
	if result.NewState.PromotionProgress != 0 || result.NewState.RelegationProgress != 0 {
		t.Fatal("protected player must not accrue progress")
	}
}

func TestCalculateLeaguePromotion_RelegationAfterThreeBadGames(t *testing.T) {
	state := LeagueState{Division: models.DivisionOuro}
	for i := 0; i < 3; i++ {
		result := CalculateLeaguePromotion(state, 20, DefaultLeagueConfig)
		state = result.NewState
		if i < 2 && result.Relegated {
			t.Fatalf("relegated after %d game(s), want 3", i+1)
		}
		if i == 2 && !result.Relegated {
			t.Fatal("expected relegation on third game below threshold")
		}
	}
	if state.Division != models.DivisionPrata {
		t.Fatalf("division = %s, want PRATA", state.Division)
	}
	if state.ProtectionGames != 5 {
		t.Fatalf("protection games = %d, want 5", state.ProtectionGames)
	}
}

func TestCalculateLeaguePromotion_DiamanteNeverPromotes(t *testing.T) {
	state := LeagueState{Division: models.DivisionDiamante}
	for i := 0; i < 5; i++ {
		result := CalculateLeaguePromotion(state, 100, DefaultLeagueConfig)
		if result.Promoted {
			t.Fatal("DIAMANTE must not promote")
		}
		state = result.NewState
	}
	if state.Division != models.DivisionDiamante {
		t.Fatalf("division = %s, want DIAMANTE", state.Division)
	}
}

func TestCalculateLeaguePromotion_BronzeNeverRelegates(t *testing.T) {
	state := LeagueState{Division: models.DivisionBronze}
	for i := 0; i < 5; i++ {
		result := CalculateLeaguePromotion(state, 0, DefaultLeagueConfig)
		if result.Relegated {
			t.Fatal("BRONZE must not relegate")
		}
		state = result.NewState
	}
}

func TestCalculateLeaguePromotion_OppositeProgressResets(t *testing.T) {
	state := LeagueState{
		Division:           models.DivisionPrata,
		RelegationProgress: 2,
	}
	result := CalculateLeaguePromotion(state, 55, DefaultLeagueConfig)
	if result.NewState.RelegationProgress != 0 {
		t.Fatalf("relegation progress = %d, want 0 after qualifying rating", result.NewState.RelegationProgress)
	}
	if result.NewState.PromotionProgress != 1 {
		t.Fatalf("promotion progress = %d, want 1", result.NewState.PromotionProgress)
	}
}

func TestCalculateLeaguePromotion_MidBandResetsBoth(t *testing.T) {
	state := LeagueState{
		Division:           models.DivisionPrata,
		PromotionProgress:  2,
		RelegationProgress: 1,
	}
	// PRATA band is [30, 50); 40 is inside it
	result := CalculateLeaguePromotion(state, 40, DefaultLeagueConfig)
	if result.NewState.PromotionProgress != 0 || result.NewState.RelegationProgress != 0 {
		t.Fatalf("mid-band rating must reset both counters, got promo=%d releg=%d",
			result.NewState.PromotionProgress, result.NewState.RelegationProgress)
	}
	if result.DivisionChanged() {
		t.Fatal("mid-band rating must not change division")
	}
}

func TestAppendRecentGame_TrimsWindow(t *testing.T) {
	var window []models.LeagueGame
	for i := 0; i < 15; i++ {
		window = AppendRecentGame(window, models.LeagueGame{GameID: string(rune('a' + i))}, DefaultLeagueConfig)
	}
	if len(window) != DefaultLeagueConfig.MaxRecentGames {
		t.Fatalf("window length = %d, want %d", len(window), DefaultLeagueConfig.MaxRecentGames)
	}
	// newest first
	if window[0].GameID != string(rune('a'+14)) {
		t.Fatalf("newest game = %s, want %s", window[0].GameID, string(rune('a'+14)))
	}
}
