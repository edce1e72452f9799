package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"futeba-gamification-system/models"
	"futeba-gamification-system/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameFinisher runs the full reward pipeline when a game finishes:
// validation, XP computation, idempotent commit, league progression and
// badge awards for every confirmed player.
type GameFinisher struct {
	DB          *gorm.DB
	Processor   *XpProcessor
	Progression *ProgressionService
	Badges      *BadgeService
	DeadLetters DeadLetterSink
	LeagueCfg   LeagueConfig
}

func NewGameFinisher(db *gorm.DB, processor *XpProcessor, progression *ProgressionService, badges *BadgeService, dlq DeadLetterSink) *GameFinisher {
	return &GameFinisher{
		DB:          db,
		Processor:   processor,
		Progression: progression,
		Badges:      badges,
		DeadLetters: dlq,
		LeagueCfg:   DefaultLeagueConfig,
	}
}

// playerOutcome is the per-player computation before any write happens.
type playerOutcome struct {
	conf      models.GameConfirmation
	result    string
	goalDiff  int
	isMvp     bool
	xpData    XpTransactionData
	newBadges []string
}

// ProcessGame awards XP for a finished game. Safe to call repeatedly: the
// xp_processed flag plus per-player transaction ids make re-runs no-ops.
func (f *GameFinisher) ProcessGame(ctx context.Context, gameID string) error {
	var game models.Game
	if err := f.DB.First(&game, "id = ?", gameID).Error; err != nil {
		return fmt.Errorf("game %s not found: %w", gameID, err)
	}
	if game.Status != models.GameStatusFinished {
		return fmt.Errorf("game %s is not finished (status %s)", gameID, game.Status)
	}
	if game.XpProcessed {
		log.Printf("[GameFinish] Game %s already processed, skipping", gameID)
		return nil
	}

	log.Printf("[GameFinish] ⚽ Processing game %s for XP...", gameID)

	var confirmations []models.GameConfirmation
	if err := f.DB.Where("game_id = ? AND status = ?", gameID, models.ConfirmationConfirmed).
		Find(&confirmations).Error; err != nil {
		return fmt.Errorf("load confirmations: %w", err)
	}

	var teams []models.GameTeam
	if err := f.DB.Where("game_id = ?", gameID).Find(&teams).Error; err != nil {
		return fmt.Errorf("load teams: %w", err)
	}

	if verr := validation.MinPlayers(len(confirmations)); verr != nil {
		log.Printf("[GameFinish] Game %s has %d confirmed player(s), minimum is %d. Marking processed without XP.",
			gameID, len(confirmations), validation.MinPlayersForXp)
		return f.markProcessed(gameID)
	}

	settings := f.Progression.GetSettings()
	teamResults, goalDiffs, opponentScores := resolveTeamResults(teams)

	outcomes := make([]playerOutcome, 0, len(confirmations))
	for _, conf := range confirmations {
		outcome, err := f.computePlayer(game, conf, teams, teamResults, goalDiffs, opponentScores, settings)
		if err != nil {
			log.Printf("[GameFinish] ⚠️ Skipping player %s in game %s: %v", conf.UserID, gameID, err)
			continue
		}
		outcomes = append(outcomes, outcome)
	}

	// Commit each player through the idempotent single path, wrapped in
	// retry so one contended row does not fail the whole game.
	pendingFollowUp := 0
	for _, o := range outcomes {
		o := o
		retryResult := RetryWithBackoff(ctx, func() (XpProcessingResult, error) {
			result := f.Processor.ProcessXpIdempotent(ctx, o.xpData)
			if !result.Success {
				return result, fmt.Errorf("xp processing failed: %s", result.Error)
			}
			return result, nil
		}, RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 500 * time.Millisecond,
			OperationName:  "process_game_xp",
			DeadLetterSink: f.DeadLetters,
			Context: map[string]any{
				"game_id": gameID,
				"user_id": o.conf.UserID,
			},
		})
		if !retryResult.Success {
			log.Printf("[GameFinish] ❌ XP for player %s in game %s failed after %d attempt(s): %v",
				o.conf.UserID, gameID, retryResult.Attempts, retryResult.Err)
			continue
		}
		// A transaction committed on an earlier run may still owe its
		// stats/league/badge follow-up if the process died in between.
		// The post_processed flag tells the two apart.
		if retryResult.Result.AlreadyProcessed && f.postProcessingDone(o) {
			continue
		}

		if err := f.applyPostProcessing(o, gameID); err != nil {
			log.Printf("[GameFinish] ⚠️ Post-processing for player %s failed: %v", o.conf.UserID, err)
			pendingFollowUp++
		}
	}

	// Leave the game unprocessed while any player still owes follow-up
	// writes; the next worker sweep resumes them through the
	// post_processed flag without re-awarding XP.
	if pendingFollowUp > 0 {
		return fmt.Errorf("game %s: %d player(s) with pending post-processing", gameID, pendingFollowUp)
	}

	if err := f.markProcessed(gameID); err != nil {
		return err
	}
	log.Printf("[GameFinish] ✅ Game %s processing complete (%d player(s))", gameID, len(outcomes))
	return nil
}

func (f *GameFinisher) markProcessed(gameID string) error {
	now := time.Now()
	return f.DB.Model(&models.Game{}).
		Where("id = ?", gameID).
		Updates(map[string]interface{}{"xp_processed": true, "xp_processed_at": now}).Error
}

// resolveTeamResults maps each team id to its result, goal differential and
// the opposing team's score. Games without exactly two scored teams resolve
// to draws with zero differential.
func resolveTeamResults(teams []models.GameTeam) (map[string]string, map[string]int, map[string]int) {
	results := make(map[string]string)
	diffs := make(map[string]int)
	opponentScores := make(map[string]int)
	if len(teams) < 2 {
		return results, diffs, opponentScores
	}

	t1, t2 := teams[0], teams[1]
	diffs[t1.ID] = t1.Score - t2.Score
	diffs[t2.ID] = t2.Score - t1.Score
	opponentScores[t1.ID] = t2.Score
	opponentScores[t2.ID] = t1.Score

	switch {
	case t1.Score > t2.Score:
		results[t1.ID] = models.ResultWin
		results[t2.ID] = models.ResultLoss
	case t2.Score > t1.Score:
		results[t1.ID] = models.ResultLoss
		results[t2.ID] = models.ResultWin
	default:
		results[t1.ID] = models.ResultDraw
		results[t2.ID] = models.ResultDraw
	}
	return results, diffs, opponentScores
}

func teamForPlayer(teams []models.GameTeam, userID string) *models.GameTeam {
	for i := range teams {
		for _, id := range teams[i].PlayerIDs {
			if id == userID {
				return &teams[i]
			}
		}
	}
	return nil
}

// computePlayer derives one player's XP transaction and badge set. Pure
// computation against the player's current progress; no writes.
func (f *GameFinisher) computePlayer(
	game models.Game,
	conf models.GameConfirmation,
	teams []models.GameTeam,
	teamResults map[string]string,
	goalDiffs map[string]int,
	opponentScores map[string]int,
	settings models.GamificationSettings,
) (playerOutcome, error) {
	if errs := validation.GameStats(conf.Goals, conf.Assists, conf.Saves); len(errs) > 0 {
		return playerOutcome{}, fmt.Errorf("anti-cheat rejection: %s", validation.Format(errs))
	}

	prog, err := f.Progression.EnsureProgressRecord(conf.UserID)
	if err != nil {
		return playerOutcome{}, err
	}

	result := models.ResultDraw
	goalDiff := 0
	var opponentScore *int
	if team := teamForPlayer(teams, conf.UserID); team != nil {
		if r, ok := teamResults[team.ID]; ok {
			result = r
		}
		goalDiff = goalDiffs[team.ID]
		if s, ok := opponentScores[team.ID]; ok {
			s := s
			opponentScore = &s
		}
	}
	isMvp := game.MvpID != "" && game.MvpID == conf.UserID

	// XP computation
	xp := settings.XpPresence
	goalsXp := conf.Goals * settings.XpPerGoal
	assistsXp := conf.Assists * settings.XpPerAssist
	savesXp := conf.Saves * settings.XpPerSave
	xp += goalsXp + assistsXp + savesXp

	resultXp := 0
	switch result {
	case models.ResultWin:
		resultXp = settings.XpWin
	case models.ResultDraw:
		resultXp = settings.XpDraw
	}
	xp += resultXp

	mvpXp := 0
	if isMvp {
		mvpXp = settings.XpMvp
	}
	xp += mvpXp

	streak := prog.CurrentStreak + 1
	streakXp := 0
	switch {
	case streak >= 10:
		streakXp = settings.XpStreak10
	case streak >= 7:
		streakXp = settings.XpStreak7
	case streak >= 3:
		streakXp = settings.XpStreak3
	}
	xp += streakXp

	// Project the post-game stats for milestone and badge checks without
	// mutating the stored record yet.
	projected := *prog
	projected.TotalGames++
	projected.TotalGoals += int64(conf.Goals)
	projected.TotalAssists += int64(conf.Assists)
	projected.TotalSaves += int64(conf.Saves)
	switch result {
	case models.ResultWin:
		projected.GamesWon++
	case models.ResultLoss:
		projected.GamesLost++
	default:
		projected.GamesDraw++
	}
	if isMvp {
		projected.BestPlayerCount++
	}

	newMilestones, milestonesXp := CheckMilestones(&projected)
	xp += milestonesXp
	xp = validation.CapXP(xp)

	currentXp := prog.ExperiencePoints
	finalXp := currentXp + int64(xp)
	levelBefore := GetLevelForXp(currentXp)
	levelAfter := GetLevelForXp(finalXp)

	newMvpStreak := CalculateMvpStreak(prog.CurrentMvpStreak, isMvp)
	badges := GetAllBadgesToAward(BadgeContext{
		Goals:         conf.Goals,
		Assists:       conf.Assists,
		Saves:         conf.Saves,
		Position:      conf.Position,
		IsMvp:         isMvp,
		TotalGames:    projected.TotalGames,
		GamesWon:      projected.GamesWon,
		Streak:        streak,
		NewMvpStreak:  newMvpStreak,
		NewLevel:      levelAfter,
		Result:        result,
		OpponentScore: opponentScore,
	})

	cleanSheet := conf.Position == models.PositionGoalkeeper && opponentScore != nil && *opponentScore == 0

	return playerOutcome{
		conf:      conf,
		result:    result,
		goalDiff:  goalDiff,
		isMvp:     isMvp,
		newBadges: badges,
		xpData: XpTransactionData{
			GameID:      game.ID,
			UserID:      conf.UserID,
			XpEarned:    xp,
			XpBefore:    int(currentXp),
			XpAfter:     int(finalXp),
			LevelBefore: levelBefore,
			LevelAfter:  levelAfter,
			Breakdown: XpBreakdown{
				Participation: settings.XpPresence,
				Goals:         goalsXp,
				Assists:       assistsXp,
				Saves:         savesXp,
				Result:        resultXp,
				Mvp:           mvpXp,
				Milestones:    milestonesXp,
				Streak:        streakXp,
			},
			Metadata: XpMetadata{
				Goals:              conf.Goals,
				Assists:            conf.Assists,
				Saves:              conf.Saves,
				WasMvp:             isMvp,
				WasCleanSheet:      cleanSheet,
				GameResult:         result,
				MilestonesUnlocked: newMilestones,
			},
		},
	}, nil
}

// applyOutcomeToProgress folds one game outcome into a progress record:
// counters, streaks, the refreshed recent-games window and the league step.
// Pure mutation so it runs once per committed XP award.
func applyOutcomeToProgress(prog *models.UserProgress, o playerOutcome, gameID string, cfg LeagueConfig) LeagueResult {
	prog.TotalGames++
	prog.TotalGoals += int64(o.conf.Goals)
	prog.TotalAssists += int64(o.conf.Assists)
	prog.TotalSaves += int64(o.conf.Saves)
	switch o.result {
	case models.ResultWin:
		prog.GamesWon++
	case models.ResultLoss:
		prog.GamesLost++
	default:
		prog.GamesDraw++
	}
	if o.isMvp {
		prog.BestPlayerCount++
	}
	prog.CurrentStreak++
	prog.CurrentMvpStreak = CalculateMvpStreak(prog.CurrentMvpStreak, o.isMvp)

	prog.RecentGames = AppendRecentGame(prog.RecentGames, models.LeagueGame{
		GameID:   gameID,
		XpEarned: o.xpData.XpEarned,
		Won:      o.result == models.ResultWin,
		GoalDiff: o.goalDiff,
		WasMvp:   o.isMvp,
	}, cfg)

	rating := validation.NormalizeLeagueRating(CalculateLeagueRating(prog.RecentGames))
	leagueResult := CalculateLeaguePromotion(LeagueState{
		Division:           prog.Division,
		LeagueRating:       prog.LeagueRating,
		PromotionProgress:  prog.PromotionProgress,
		RelegationProgress: prog.RelegationProgress,
		ProtectionGames:    prog.ProtectionGames,
	}, rating, cfg)

	prog.Division = leagueResult.NewState.Division
	prog.LeagueRating = leagueResult.NewState.LeagueRating
	prog.PromotionProgress = leagueResult.NewState.PromotionProgress
	prog.RelegationProgress = leagueResult.NewState.RelegationProgress
	prog.ProtectionGames = leagueResult.NewState.ProtectionGames
	return leagueResult
}

// postProcessingDone reports whether the follow-up writes for this player's
// award already committed. Missing or unreadable records count as not done,
// the flag check inside applyPostProcessing keeps re-runs exactly-once.
func (f *GameFinisher) postProcessingDone(o playerOutcome) bool {
	var txn models.XpTransaction
	err := f.DB.Select("post_processed").
		Where("transaction_id = ?", TransactionID(o.xpData.GameID, o.xpData.UserID)).
		First(&txn).Error
	if err != nil {
		return false
	}
	return txn.PostProcessed
}

// applyPostProcessing updates the stats, streaks and league state that sit
// outside the idempotent XP commit, then flips the post_processed flag in the
// same transaction so a run that died halfway finishes the job on the next
// sweep without double-counting. Badges go first; they dedup on their unique
// index, so repeating them is a no-op.
func (f *GameFinisher) applyPostProcessing(o playerOutcome, gameID string) error {
	if len(o.newBadges) > 0 {
		if _, err := f.Badges.AwardBadges(o.conf.UserID, gameID, o.newBadges); err != nil {
			return err
		}
	}

	transactionID := TransactionID(o.xpData.GameID, o.xpData.UserID)
	return f.DB.Transaction(func(tx *gorm.DB) error {
		var txn models.XpTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).First(&txn).Error; err != nil {
			return err
		}
		if txn.PostProcessed {
			return nil
		}

		var prog models.UserProgress
		if err := tx.Where("user_id = ?", o.conf.UserID).First(&prog).Error; err != nil {
			return err
		}

		leagueResult := applyOutcomeToProgress(&prog, o, gameID, f.LeagueCfg)
		if leagueResult.Promoted {
			log.Printf("🏆 Player %s promoted: %s → %s", o.conf.UserID, leagueResult.PreviousDivision, prog.Division)
		}
		if leagueResult.Relegated {
			log.Printf("📉 Player %s relegated: %s → %s", o.conf.UserID, leagueResult.PreviousDivision, prog.Division)
		}

		if err := tx.Save(&prog).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.GameConfirmation{}).
			Where("id = ?", o.conf.ID).
			Update("xp_earned", o.xpData.XpEarned).Error; err != nil {
			return err
		}

		return tx.Model(&models.XpTransaction{}).
			Where("transaction_id = ?", transactionID).
			Update("post_processed", true).Error
	})
}
