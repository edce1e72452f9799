package services

import (
	"futeba-gamification-system/models"
)

// League progression tuning. Defaults match the league rollout plan.
type LeagueConfig struct {
	PromotionGamesRequired  int
	RelegationGamesRequired int
	ProtectionGames         int
	MaxRecentGames          int
}

var DefaultLeagueConfig = LeagueConfig{
	PromotionGamesRequired:  3,
	RelegationGamesRequired: 3,
	ProtectionGames:         5,
	MaxRecentGames:          10,
}

// LeagueState is the slice of UserProgress the league engine reads and writes.
type LeagueState struct {
	Division           string
	LeagueRating       float64
	PromotionProgress  int
	RelegationProgress int
	ProtectionGames    int
}

// LeagueResult describes one progression step.
type LeagueResult struct {
	NewState         LeagueState
	PreviousDivision string
	Promoted         bool
	Relegated        bool
}

func (r LeagueResult) DivisionChanged() bool {
	return r.Promoted || r.Relegated
}

var divisionOrder = []string{
	models.DivisionBronze,
	models.DivisionPrata,
	models.DivisionOuro,
	models.DivisionDiamante,
}

// Rating needed to qualify for the division above the given one.
// DIAMANTE returns 100 (unreachable, top division never promotes).
func NextDivisionThreshold(division string) float64 {
	switch division {
	case models.DivisionBronze:
		return 30
	case models.DivisionPrata:
		return 50
	case models.DivisionOuro:
		return 70
	default:
		return 100
	}
}

// Rating floor of the given division. Falling below it qualifies for
// relegation. BRONZE returns 0 (bottom division never relegates).
func PreviousDivisionThreshold(division string) float64 {
	switch division {
	case models.DivisionPrata:
		return 30
	case models.DivisionOuro:
		return 50
	case models.DivisionDiamante:
		return 70
	default:
		return 0
	}
}

// GetDivisionForRating maps a 0-100 rating onto its division band.
func GetDivisionForRating(rating float64) string {
	switch {
	case rating >= 70:
		return models.DivisionDiamante
	case rating >= 50:
		return models.DivisionOuro
	case rating >= 30:
		return models.DivisionPrata
	default:
		return models.DivisionBronze
	}
}

func nextDivision(division string) string {
	for i, d := range divisionOrder {
		if d == division && i+1 < len(divisionOrder) {
			return divisionOrder[i+1]
		}
	}
	return division
}

func previousDivision(division string) string {
	for i, d := range divisionOrder {
		if d == division && i > 0 {
			return divisionOrder[i-1]
		}
	}
	return division
}

// CalculateLeagueRating computes the weighted composite rating over the
// recent-games window: 40% XP per game, 30% win rate, 20% goal differential,
// 10% MVP rate. Empty windows rate exactly 0.
func CalculateLeagueRating(games []models.LeagueGame) float64 {
	if len(games) == 0 {
		return 0
	}

	n := float64(len(games))
	var xpSum, diffSum float64
	var wins, mvps int
	for _, g := range games {
		xpSum += float64(g.XpEarned)
		diffSum += float64(g.GoalDiff)
		if g.Won {
			wins++
		}
		if g.WasMvp {
			mvps++
		}
	}

	xpScore := clamp01(xpSum / n / 500)
	winRate := float64(wins) / n
	diffScore := clamp01((diffSum/n + 3) / 6)
	mvpScore := clamp01(float64(mvps) / n / 0.5)

	rating := (xpScore*0.4 + winRate*0.3 + diffScore*0.2 + mvpScore*0.1) * 100
	if rating < 0 {
		return 0
	}
	if rating > 100 {
		return 100
	}
	return rating
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CalculateLeaguePromotion advances the promotion state machine by one game.
//
// Protection takes absolute precedence: a protected player burns one
// protection game and both progress counters stay at zero. Otherwise a rating
// in the promotion zone advances promotion progress (resetting relegation),
// a rating in the relegation zone advances relegation progress (resetting
// promotion), and a rating in neither zone resets whichever counters no
// longer apply. Reaching the required consecutive count changes division and
// grants a fresh protection window.
func CalculateLeaguePromotion(state LeagueState, newRating float64, cfg LeagueConfig) LeagueResult {
	oldDivision := state.Division
	promotionAt := NextDivisionThreshold(oldDivision)
	relegationAt := PreviousDivisionThreshold(oldDivision)

	protection := state.ProtectionGames
	promotionProgress := state.PromotionProgress
	relegationProgress := state.RelegationProgress

	promoted := false
	relegated := false
	newDivision := oldDivision

	if protection > 0 {
		protection--
		promotionProgress = 0
		relegationProgress = 0
	} else if newRating >= promotionAt && oldDivision != models.DivisionDiamante {
		promotionProgress++
		relegationProgress = 0
		if promotionProgress >= cfg.PromotionGamesRequired {
			promoted = true
			promotionProgress = 0
			protection = cfg.ProtectionGames
			newDivision = nextDivision(oldDivision)
		}
	} else if newRating < relegationAt && oldDivision != models.DivisionBronze {
		relegationProgress++
		promotionProgress = 0
		if relegationProgress >= cfg.RelegationGamesRequired {
			relegated = true
			relegationProgress = 0
			protection = cfg.ProtectionGames
			newDivision = previousDivision(oldDivision)
		}
	} else {
		if newRating < promotionAt {
			promotionProgress = 0
		}
		if newRating >= relegationAt {
			relegationProgress = 0
		}
	}

	return LeagueResult{
		NewState: LeagueState{
			Division:           newDivision,
			LeagueRating:       newRating,
			PromotionProgress:  promotionProgress,
			RelegationProgress: relegationProgress,
			ProtectionGames:    protection,
		},
		PreviousDivision: oldDivision,
		Promoted:         promoted,
		Relegated:        relegated,
	}
}

// TrimRecentGames keeps the newest entries of a recent-games window, newest
// first, capped at the configured maximum.
func TrimRecentGames(games []models.LeagueGame, cfg LeagueConfig) []models.LeagueGame {
	if len(games) <= cfg.MaxRecentGames {
		return games
	}
	return games[:cfg.MaxRecentGames]
}

// AppendRecentGame prepends the newest game and trims the window.
func AppendRecentGame(games []models.LeagueGame, game models.LeagueGame, cfg LeagueConfig) []models.LeagueGame {
	window := make([]models.LeagueGame, 0, len(games)+1)
	window = append(window, game)
	window = append(window, games...)
	return TrimRecentGames(window, cfg)
}
