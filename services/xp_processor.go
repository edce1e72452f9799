package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"futeba-gamification-system/models"

	"github.com/google/uuid"
)

// Sanitization bounds for incoming XP transaction data.
const (
	MaxXpPerGame       = 500
	MinXpPerGame       = -100
	MaxLevel           = 999
	MaxStatsPerGame    = 50
	MaxMilestonesPerTx = 10
)

// XpBreakdown itemizes the per-category contributions summing to XpEarned.
type XpBreakdown struct {
	Participation int `json:"participation"`
	Goals         int `json:"goals"`
	Assists       int `json:"assists"`
	Saves         int `json:"saves"`
	Result        int `json:"result"`
	Mvp           int `json:"mvp"`
	CleanSheet    int `json:"clean_sheet"`
	Milestones    int `json:"milestones"`
	Streak        int `json:"streak"`
	Penalty       int `json:"penalty"`
}

func (b XpBreakdown) sum() int {
	return b.Participation + b.Goals + b.Assists + b.Saves + b.Result +
		b.Mvp + b.CleanSheet + b.Milestones + b.Streak + b.Penalty
}

// XpMetadata carries the raw stats the XP was derived from.
type XpMetadata struct {
	Goals              int      `json:"goals"`
	Assists            int      `json:"assists"`
	Saves              int      `json:"saves"`
	WasMvp             bool     `json:"was_mvp"`
	WasCleanSheet      bool     `json:"was_clean_sheet"`
	WasWorstPlayer     bool     `json:"was_worst_player"`
	GameResult         string   `json:"game_result"`
	MilestonesUnlocked []string `json:"milestones_unlocked"`
}

// XpTransactionData is one player's XP award for one finished game.
type XpTransactionData struct {
	GameID      string      `json:"game_id"`
	UserID      string      `json:"user_id"`
	XpEarned    int         `json:"xp_earned"`
	XpBefore    int         `json:"xp_before"`
	XpAfter     int         `json:"xp_after"`
	LevelBefore int         `json:"level_before"`
	LevelAfter  int         `json:"level_after"`
	Breakdown   XpBreakdown `json:"breakdown"`
	Metadata    XpMetadata  `json:"metadata"`
}

// XpProcessingResult reports the outcome for one transaction.
type XpProcessingResult struct {
	Success          bool   `json:"success"`
	TransactionID    string `json:"transaction_id"`
	AlreadyProcessed bool   `json:"already_processed"`
	Error            string `json:"error,omitempty"`
}

// TransactionID builds the deterministic idempotency key for a (game, user)
// pair. The same event always maps to the same key.
func TransactionID(gameID, userID string) string {
	return fmt.Sprintf("game_%s_user_%s", gameID, userID)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func sanitizeStat(value int, field string) int {
	if value < 0 {
		log.Printf("[XP_VALIDATION] ⚠️ %s negative (%d), correcting to 0", field, value)
		return 0
	}
	if value > MaxStatsPerGame {
		log.Printf("[XP_VALIDATION] ⚠️ %s exceeds plausible max (%d > %d), capping", field, value, MaxStatsPerGame)
		return MaxStatsPerGame
	}
	return value
}

// ValidateAndSanitizeXpData normalizes a transaction before processing.
// Missing or absurd values are corrected rather than rejected where safe;
// missing IDs are unrecoverable and fail hard.
func ValidateAndSanitizeXpData(data XpTransactionData) (XpTransactionData, error) {
	if strings.TrimSpace(data.GameID) == "" {
		return data, fmt.Errorf("gameId is required and must be a non-empty string")
	}
	if strings.TrimSpace(data.UserID) == "" {
		return data, fmt.Errorf("userId is required and must be a non-empty string")
	}

	if data.XpEarned > MaxXpPerGame {
		log.Printf("[XP_VALIDATION] ⚠️ Excessive xpEarned (%d) for user %s in game %s, capping at %d",
			data.XpEarned, data.UserID, data.GameID, MaxXpPerGame)
	}
	if data.XpEarned < MinXpPerGame {
		log.Printf("[XP_VALIDATION] ⚠️ Overly negative xpEarned (%d) for user %s, capping at %d",
			data.XpEarned, data.UserID, MinXpPerGame)
	}
	xpEarned := clampInt(data.XpEarned, MinXpPerGame, MaxXpPerGame)

	xpBefore := data.XpBefore
	if xpBefore < 0 {
		xpBefore = 0
	}

	// xp_after must be exactly before + earned; trust the sum, not the client
	expectedAfter := xpBefore + xpEarned
	if abs(data.XpAfter-expectedAfter) > 1 {
		log.Printf("[XP_VALIDATION] ⚠️ XP inconsistency: before=%d + earned=%d != after=%d, recalculating",
			xpBefore, xpEarned, data.XpAfter)
	}
	xpAfter := expectedAfter
	if xpAfter < 0 {
		xpAfter = 0
	}

	sanitized := XpTransactionData{
		GameID:      strings.TrimSpace(data.GameID),
		UserID:      strings.TrimSpace(data.UserID),
		XpEarned:    xpEarned,
		XpBefore:    xpBefore,
		XpAfter:     xpAfter,
		LevelBefore: clampInt(data.LevelBefore, 0, MaxLevel),
		LevelAfter:  clampInt(data.LevelAfter, 0, MaxLevel),
		Breakdown:   data.Breakdown,
	}

	if diff := abs(sanitized.Breakdown.sum() - xpEarned); diff > 5 {
		log.Printf("[XP_VALIDATION] ⚠️ Breakdown sum (%d) differs from xpEarned (%d), check calculations",
			sanitized.Breakdown.sum(), xpEarned)
	}

	result := data.Metadata.GameResult
	if result != models.ResultWin && result != models.ResultDraw && result != models.ResultLoss {
		result = models.ResultDraw
	}
	milestones := make([]string, 0, len(data.Metadata.MilestonesUnlocked))
	for _, m := range data.Metadata.MilestonesUnlocked {
		if m != "" && len(milestones) < MaxMilestonesPerTx {
			milestones = append(milestones, m)
		}
	}
	sanitized.Metadata = XpMetadata{
		Goals:              sanitizeStat(data.Metadata.Goals, "metadata.goals"),
		Assists:            sanitizeStat(data.Metadata.Assists, "metadata.assists"),
		Saves:              sanitizeStat(data.Metadata.Saves, "metadata.saves"),
		WasMvp:             data.Metadata.WasMvp,
		WasCleanSheet:      data.Metadata.WasCleanSheet,
		WasWorstPlayer:     data.Metadata.WasWorstPlayer,
		GameResult:         result,
		MilestonesUnlocked: milestones,
	}

	return sanitized, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// XpProcessor applies XP transactions with idempotency guarantees.
type XpProcessor struct {
	Store XpStore
}

func NewXpProcessor(store XpStore) *XpProcessor {
	return &XpProcessor{Store: store}
}

// IsAlreadyProcessed checks the log for the given idempotency key. Fails
// open: on a store error it reports "not processed", because a missed
// pre-check only costs one extra transactional double-check (in
// ProcessXpIdempotent), while a false positive would silently drop a
// legitimate reward.
func (p *XpProcessor) IsAlreadyProcessed(transactionID string) bool {
	txn, err := p.Store.FindTransaction(transactionID)
	if err != nil {
		log.Printf("[XP_IDEMPOTENCY] ❌ Error checking transaction %s: %v", transactionID, err)
		return false
	}
	return txn != nil
}

// ProcessXpIdempotent applies one XP transaction exactly once.
//
// A cheap pre-check skips known duplicates without opening a transaction.
// Everything else runs inside one store transaction that re-verifies the
// idempotency key, locks the user's progress row, writes the immutable log
// record and applies the deltas. Racing invocations for the same
// (game, user) pair serialize on the row lock and the second sees the log
// record.
func (p *XpProcessor) ProcessXpIdempotent(ctx context.Context, data XpTransactionData) XpProcessingResult {
	validated, err := ValidateAndSanitizeXpData(data)
	if err != nil {
		log.Printf("[XP_IDEMPOTENCY] ❌ Invalid data rejected: %v (game=%s user=%s)", err, data.GameID, data.UserID)
		gameID := data.GameID
		if gameID == "" {
			gameID = "unknown"
		}
		userID := data.UserID
		if userID == "" {
			userID = "unknown"
		}
		return XpProcessingResult{
			Success:       false,
			TransactionID: fmt.Sprintf("invalid_%s_%s", gameID, userID),
			Error:         fmt.Sprintf("validation failed: %v", err),
		}
	}
	data = validated
	transactionID := TransactionID(data.GameID, data.UserID)

	if p.IsAlreadyProcessed(transactionID) {
		log.Printf("[XP_IDEMPOTENCY] Transaction %s already processed, skipping", transactionID)
		return XpProcessingResult{Success: true, TransactionID: transactionID, AlreadyProcessed: true}
	}

	alreadyProcessed := false
	err = p.Store.InTransaction(ctx, func(tx XpStoreTx) error {
		existing, err := tx.FindTransaction(transactionID)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Printf("[XP_IDEMPOTENCY] Transaction %s already processed (race detected), aborting", transactionID)
			alreadyProcessed = true
			return nil
		}

		prog, err := tx.GetProgressForUpdate(data.UserID)
		if err != nil {
			return err
		}

		prog.ExperiencePoints = int64(data.XpAfter)
		prog.Level = data.LevelAfter
		if len(data.Metadata.MilestonesUnlocked) > 0 {
			prog.AddMilestones(data.Metadata.MilestonesUnlocked)
		}
		if err := tx.SaveProgress(prog); err != nil {
			return err
		}

		if err := tx.CreateTransaction(newXpTransactionRecord(transactionID, data)); err != nil {
			return err
		}

		log.Printf("[XP_IDEMPOTENCY] ✅ Transaction %s processed: %+d XP", transactionID, data.XpEarned)
		return nil
	})
	if err != nil {
		log.Printf("[XP_IDEMPOTENCY] ❌ Error processing transaction %s: %v", transactionID, err)
		return XpProcessingResult{Success: false, TransactionID: transactionID, Error: err.Error()}
	}

	return XpProcessingResult{Success: true, TransactionID: transactionID, AlreadyProcessed: alreadyProcessed}
}

// ProcessXpBatch applies many XP transactions in one atomic commit.
//
// Duplicates are filtered up front with chunked lookups, then every
// remaining write goes into a single store transaction. A commit failure
// fails all non-duplicate entries together (no partial application);
// duplicates report success regardless since nothing was written for them.
// The duplicate filter runs outside the single-path transaction, so racing
// a batch against ProcessXpIdempotent for the same pair is not safe; the
// unique index on transaction_id turns that race into a failed commit
// rather than a double award.
func (p *XpProcessor) ProcessXpBatch(ctx context.Context, inputs []XpTransactionData) []XpProcessingResult {
	if len(inputs) == 0 {
		return []XpProcessingResult{}
	}
	log.Printf("[XP_BATCH] Processing %d transaction(s)...", len(inputs))

	var validationFailures []XpProcessingResult
	transactions := make([]XpTransactionData, 0, len(inputs))
	for _, txn := range inputs {
		validated, err := ValidateAndSanitizeXpData(txn)
		if err != nil {
			log.Printf("[XP_BATCH] ❌ Transaction rejected in validation: %v (game=%s user=%s)", err, txn.GameID, txn.UserID)
			gameID := txn.GameID
			if gameID == "" {
				gameID = "unknown"
			}
			userID := txn.UserID
			if userID == "" {
				userID = "unknown"
			}
			validationFailures = append(validationFailures, XpProcessingResult{
				Success:       false,
				TransactionID: fmt.Sprintf("invalid_%s_%s", gameID, userID),
				Error:         fmt.Sprintf("validation failed: %v", err),
			})
			continue
		}
		transactions = append(transactions, validated)
	}
	if len(validationFailures) > 0 {
		log.Printf("[XP_BATCH] ⚠️ %d/%d transaction(s) rejected in validation", len(validationFailures), len(inputs))
	}

	transactionIDs := make([]string, len(transactions))
	for i, t := range transactions {
		transactionIDs[i] = TransactionID(t.GameID, t.UserID)
	}

	existing, err := p.Store.FindTransactionIDs(transactionIDs)
	if err != nil {
		log.Printf("[XP_BATCH] ❌ Duplicate lookup failed: %v", err)
		results := validationFailures
		for _, id := range transactionIDs {
			results = append(results, XpProcessingResult{Success: false, TransactionID: id, Error: err.Error()})
		}
		return results
	}
	processed := make(map[string]bool, len(existing))
	for _, id := range existing {
		processed[id] = true
	}

	var toProcess []XpTransactionData
	for _, t := range transactions {
		if !processed[TransactionID(t.GameID, t.UserID)] {
			toProcess = append(toProcess, t)
		}
	}
	if skipped := len(transactions) - len(toProcess); skipped > 0 {
		log.Printf("[XP_BATCH] %d transaction(s) already processed, skipping", skipped)
	}

	results := validationFailures
	if len(toProcess) == 0 {
		for _, id := range transactionIDs {
			results = append(results, XpProcessingResult{Success: true, TransactionID: id, AlreadyProcessed: true})
		}
		return results
	}

	commitErr := p.Store.InTransaction(ctx, func(tx XpStoreTx) error {
		records := make([]*models.XpTransaction, 0, len(toProcess))
		for _, data := range toProcess {
			id := TransactionID(data.GameID, data.UserID)

			prog, err := tx.GetProgressForUpdate(data.UserID)
			if err != nil {
				return fmt.Errorf("load progress for %s: %w", data.UserID, err)
			}
			prog.ExperiencePoints = int64(data.XpAfter)
			prog.Level = data.LevelAfter
			if len(data.Metadata.MilestonesUnlocked) > 0 {
				prog.AddMilestones(data.Metadata.MilestonesUnlocked)
			}
			if err := tx.SaveProgress(prog); err != nil {
				return fmt.Errorf("save progress for %s: %w", data.UserID, err)
			}
			records = append(records, newXpTransactionRecord(id, data))
		}
		return tx.CreateTransactions(records)
	})

	for _, t := range transactions {
		id := TransactionID(t.GameID, t.UserID)
		switch {
		case processed[id]:
			results = append(results, XpProcessingResult{Success: true, TransactionID: id, AlreadyProcessed: true})
		case commitErr != nil:
			results = append(results, XpProcessingResult{Success: false, TransactionID: id, Error: commitErr.Error()})
		default:
			results = append(results, XpProcessingResult{Success: true, TransactionID: id})
		}
	}

	if commitErr != nil {
		log.Printf("[XP_BATCH] ❌ Batch commit failed: %v", commitErr)
	} else {
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		log.Printf("[XP_BATCH] ✅ Done: %d/%d succeeded", succeeded, len(inputs))
	}
	return results
}

func newXpTransactionRecord(transactionID string, data XpTransactionData) *models.XpTransaction {
	return &models.XpTransaction{
		ID:            uuid.NewString(),
		TransactionID: transactionID,
		GameID:        data.GameID,
		UserID:        data.UserID,

		XpEarned:    data.XpEarned,
		XpBefore:    data.XpBefore,
		XpAfter:     data.XpAfter,
		LevelBefore: data.LevelBefore,
		LevelAfter:  data.LevelAfter,

		XpParticipation: data.Breakdown.Participation,
		XpGoals:         data.Breakdown.Goals,
		XpAssists:       data.Breakdown.Assists,
		XpSaves:         data.Breakdown.Saves,
		XpResult:        data.Breakdown.Result,
		XpMvp:           data.Breakdown.Mvp,
		XpCleanSheet:    data.Breakdown.CleanSheet,
		XpMilestones:    data.Breakdown.Milestones,
		XpStreak:        data.Breakdown.Streak,
		XpPenalty:       data.Breakdown.Penalty,

		Goals:              data.Metadata.Goals,
		Assists:            data.Metadata.Assists,
		Saves:              data.Metadata.Saves,
		WasMvp:             data.Metadata.WasMvp,
		WasCleanSheet:      data.Metadata.WasCleanSheet,
		WasWorstPlayer:     data.Metadata.WasWorstPlayer,
		GameResult:         data.Metadata.GameResult,
		MilestonesUnlocked: data.Metadata.MilestonesUnlocked,
	}
}
