package services

import (
	"reflect"
	"testing"

	"futeba-gamification-system/models"
)

func TestGetLevelForXp_TableBoundaries(t *testing.T) {
	tests := []struct {
		xp   int64
		want int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{349, 1},
		{350, 2},
		{850, 3},
		{1850, 4},
		{3849, 4},
		{3850, 5},
		{52849, 9},
		{52850, 10},
		{999999, 10},
	}
	for _, tt := range tests {
		if got := GetLevelForXp(tt.xp); got != tt.want {
			t.Fatalf("GetLevelForXp(%d) = %d, want %d", tt.xp, got, tt.want)
		}
	}
}

func TestXpToNextLevel(t *testing.T) {
	if got := XpToNextLevel(0); got != 100 {
		t.Fatalf("XpToNextLevel(0) = %d, want 100", got)
	}
	if got := XpToNextLevel(100); got != 250 {
		t.Fatalf("XpToNextLevel(100) = %d, want 250", got)
	}
	if got := XpToNextLevel(52850); got != 0 {
		t.Fatalf("XpToNextLevel at cap = %d, want 0", got)
	}
}

func TestCheckMilestones_FiresNewOnes(t *testing.T) {
	prog := &models.UserProgress{
		TotalGames: 10,
		TotalGoals: 25,
		GamesWon:   3,
	}
	names, xp := CheckMilestones(prog)
	want := []string{"GAMES_10", "GOALS_10", "GOALS_25"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("milestones = %v, want %v", names, want)
	}
	if xp != 50+50+100 {
		t.Fatalf("milestone XP = %d, want 200", xp)
	}
}

func TestCheckMilestones_SkipsAchieved(t *testing.T) {
	prog := &models.UserProgress{
		TotalGames:         10,
		MilestonesAchieved: []string{"GAMES_10"},
	}
	names, xp := CheckMilestones(prog)
	if len(names) != 0 {
		t.Fatalf("milestones = %v, want none (already achieved)", names)
	}
	if xp != 0 {
		t.Fatalf("milestone XP = %d, want 0", xp)
	}
}

func TestCheckMilestones_NothingCrossed(t *testing.T) {
	prog := &models.UserProgress{TotalGames: 9, TotalGoals: 9, GamesWon: 9, TotalAssists: 9}
	names, xp := CheckMilestones(prog)
	if len(names) != 0 || xp != 0 {
		t.Fatalf("milestones = %v xp = %d, want none", names, xp)
	}
}
