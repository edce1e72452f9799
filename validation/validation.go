// Package validation provides pure, side-effect-free input checks shared by
// every endpoint and by the XP engine's anti-cheat gate.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Code is a closed set of validation error codes.
type Code string

const (
	CodeGeneric                Code = "GENERIC"
	CodeRequiredField          Code = "REQUIRED_FIELD"
	CodeInvalidFormat          Code = "INVALID_FORMAT"
	CodeInvalidLength          Code = "INVALID_LENGTH"
	CodeOutOfRange             Code = "OUT_OF_RANGE"
	CodeInvalidEmail           Code = "INVALID_EMAIL"
	CodeNegativeValue          Code = "NEGATIVE_VALUE"
	CodeInvalidTimestamp       Code = "INVALID_TIMESTAMP"
	CodeForeignKeyNotFound     Code = "FOREIGN_KEY_NOT_FOUND"
	CodeDuplicateEntry         Code = "DUPLICATE_ENTRY"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeAntiCheatViolation     Code = "ANTI_CHEAT_VIOLATION"
)

// Validation bounds.
const (
	NameMinLength        = 2
	NameMaxLength        = 100
	DescriptionMaxLength = 500

	RatingMin       = 0.0
	RatingMax       = 5.0
	LeagueRatingMin = 0.0
	LeagueRatingMax = 100.0

	LevelMin = 0
	LevelMax = 10

	// Anti-cheat limits (hard per-game ceilings)
	MaxGoalsPerGame   = 15
	MaxAssistsPerGame = 10
	MaxSavesPerGame   = 30
	MaxXpPerGame      = 500

	MaxScore = 100

	MinPlayersForXp = 6
	MinTeams        = 2
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// StringLength validates that value has between min and max characters.
// Empty values pass when min is 0.
func StringLength(value, field string, min, max int) *ValidationError {
	if value == "" {
		if min > 0 {
			return &ValidationError{Field: field, Message: field + " is required", Code: CodeRequiredField}
		}
		return nil
	}
	n := len([]rune(value))
	if n < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must have at least %d characters", field, min),
			Code:    CodeInvalidLength,
		}
	}
	if n > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must have at most %d characters", field, max),
			Code:    CodeInvalidLength,
		}
	}
	return nil
}

// Email validates email shape. Empty email is allowed (optional field).
func Email(email, field string) *ValidationError {
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: field, Message: "invalid email format", Code: CodeInvalidEmail}
	}
	return nil
}

// Range validates min <= value <= max.
func Range(value float64, field string, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be between %v and %v", field, min, max),
			Code:    CodeOutOfRange,
		}
	}
	return nil
}

// PlayerRating validates a 0.0–5.0 player rating.
func PlayerRating(rating float64, field string) *ValidationError {
	return Range(rating, field, RatingMin, RatingMax)
}

// LeagueRating validates a 0–100 league rating.
func LeagueRating(rating float64, field string) *ValidationError {
	return Range(rating, field, LeagueRatingMin, LeagueRatingMax)
}

// Level validates a 0–10 player level.
func Level(level int, field string) *ValidationError {
	return Range(float64(level), field, float64(LevelMin), float64(LevelMax))
}

// PositiveNumber validates value > 0.
func PositiveNumber(value float64, field string) *ValidationError {
	if value <= 0 {
		return &ValidationError{
			Field:   field,
			Message: field + " must be greater than zero",
			Code:    CodeNegativeValue,
		}
	}
	return nil
}

// NonNegative validates value >= 0.
func NonNegative(value float64, field string) *ValidationError {
	if value < 0 {
		return &ValidationError{
			Field:   field,
			Message: field + " cannot be negative",
			Code:    CodeNegativeValue,
		}
	}
	return nil
}

// Score validates a match score against the 0–100 bound. Exceeding the cap is
// treated as an anti-cheat violation, not a simple range error.
func Score(score int, field string) *ValidationError {
	if score < 0 {
		return &ValidationError{Field: field, Message: "score cannot be negative", Code: CodeNegativeValue}
	}
	if score > MaxScore {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("maximum score is %d", MaxScore),
			Code:    CodeAntiCheatViolation,
		}
	}
	return nil
}

// ClampScore normalizes a score into the valid 0–100 range.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// GameStats validates per-game stats against the anti-cheat ceilings.
// Negative values are always flagged; implausibly high values are rejected.
func GameStats(goals, assists, saves int) []*ValidationError {
	var errs []*ValidationError

	check := func(value, max int, field, plural string) {
		if value < 0 {
			errs = append(errs, &ValidationError{
				Field:   field,
				Message: field + " cannot be negative",
				Code:    CodeNegativeValue,
			})
		} else if value > max {
			errs = append(errs, &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("maximum of %d %s per game", max, plural),
				Code:    CodeAntiCheatViolation,
			})
		}
	}

	check(goals, MaxGoalsPerGame, "goals", "goals")
	check(assists, MaxAssistsPerGame, "assists", "assists")
	check(saves, MaxSavesPerGame, "saves", "saves")
	return errs
}

// XpGain validates XP earned in a single game against the anti-cheat cap.
func XpGain(xp int) *ValidationError {
	if xp < 0 {
		return &ValidationError{Field: "xp", Message: "xp cannot be negative", Code: CodeNegativeValue}
	}
	if xp > MaxXpPerGame {
		return &ValidationError{
			Field:   "xp",
			Message: fmt.Sprintf("maximum of %d xp per game", MaxXpPerGame),
			Code:    CodeAntiCheatViolation,
		}
	}
	return nil
}

// CapXP clamps XP into [0, MaxXpPerGame]. Defensive fallback for callers that
// normalize instead of reject.
func CapXP(xp int) int {
	if xp < 0 {
		return 0
	}
	if xp > MaxXpPerGame {
		return MaxXpPerGame
	}
	return xp
}

// NormalizeLeagueRating clamps a league rating into [0, 100].
func NormalizeLeagueRating(rating float64) float64 {
	if rating < LeagueRatingMin {
		return LeagueRatingMin
	}
	if rating > LeagueRatingMax {
		return LeagueRatingMax
	}
	return rating
}

// MinPlayers validates that a game has enough confirmed players to award XP.
func MinPlayers(playerCount int) *ValidationError {
	if playerCount < MinPlayersForXp {
		return &ValidationError{
			Field:   "player_count",
			Message: fmt.Sprintf("minimum of %d players to process xp", MinPlayersForXp),
			Code:    CodeOutOfRange,
		}
	}
	return nil
}

var (
	// Tags must not contain another "<": that way "<scr<script>ipt>" strips
	// the inner tag first and the loop below catches the reassembled one.
	htmlTagRegex     = regexp.MustCompile(`<[^<>]*>`)
	htmlEntityRegex  = regexp.MustCompile(`&(?:#x?[0-9a-fA-F]+|[a-zA-Z]+);`)
	controlCharRegex = regexp.MustCompile("[\\x00-\\x08\\x0b\\x0c\\x0e-\\x1f\\x7f\\x{200b}-\\x{200f}\\x{2028}-\\x{202f}\\x{feff}]")
	protocolRegex    = regexp.MustCompile(`(?i)(?:javascript|data|vbscript)\s*:`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// SanitizeText strips HTML tags, entities, control characters and dangerous
// protocols from free text. Runs in a loop to defeat nested payloads like
// <scr<script>ipt>.
func SanitizeText(text string) string {
	sanitized := text
	previous := ""
	for previous != sanitized {
		previous = sanitized
		sanitized = htmlTagRegex.ReplaceAllString(sanitized, "")
		sanitized = htmlEntityRegex.ReplaceAllString(sanitized, " ")
		sanitized = controlCharRegex.ReplaceAllString(sanitized, "")
		sanitized = protocolRegex.ReplaceAllString(sanitized, "")
	}
	sanitized = whitespaceRegex.ReplaceAllString(sanitized, " ")
	return strings.TrimSpace(sanitized)
}

// SanitizeAndValidateText sanitizes free text and validates its final length
// in one call.
func SanitizeAndValidateText(text, field string, maxLength int) (string, *ValidationError) {
	sanitized := SanitizeText(text)
	if len([]rune(sanitized)) > maxLength {
		return sanitized, &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s exceeds the maximum length of %d characters after sanitization", field, maxLength),
			Code:    CodeInvalidLength,
		}
	}
	return sanitized, nil
}

// Combine flattens mixed single errors and error slices into one list,
// dropping nils.
func Combine(results ...any) []*ValidationError {
	var errs []*ValidationError
	for _, r := range results {
		switch v := r.(type) {
		case *ValidationError:
			if v != nil {
				errs = append(errs, v)
			}
		case []*ValidationError:
			errs = append(errs, v...)
		case nil:
			// skip
		}
	}
	return errs
}

// HasErrors reports whether any validation error is present.
func HasErrors(errs []*ValidationError) bool {
	return len(errs) > 0
}

// Format renders validation errors as a single semicolon-joined summary.
func Format(errs []*ValidationError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message))
	}
	return strings.Join(parts, "; ")
}
