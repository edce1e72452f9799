package models

import (
	"time"
)

// BadgeType: static catalog entry for a badge. The award rules themselves live
// in the services package; this is display metadata only.
type BadgeType struct {
	Code        string `json:"code"` // e.g., "hat_trick", "paredao"
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      string `json:"rarity"` // common, rare, epic, legendary
}

// UserBadge: awarded instance (many-to-many)
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"index:idx_user_badge,unique;not null" json:"user_id"`
	BadgeCode string    `gorm:"index:idx_user_badge,unique;not null" json:"badge_code"`
	GameID    string    `json:"game_id,omitempty"` // game that triggered the award, when applicable
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

// BadgeCatalog maps badge codes to display metadata.
var BadgeCatalog = map[string]BadgeType{
	"streak_7":        {Code: "streak_7", Name: "Em Chamas", Description: "7 consecutive games played", Rarity: "common"},
	"iron_man":        {Code: "iron_man", Name: "Iron Man", Description: "10 consecutive games played", Rarity: "rare"},
	"streak_30":       {Code: "streak_30", Name: "Resenha Eterna", Description: "30 consecutive games played", Rarity: "legendary"},
	"hat_trick":       {Code: "hat_trick", Name: "Hat-Trick", Description: "3 goals in a single game", Rarity: "rare"},
	"poker":           {Code: "poker", Name: "Poker", Description: "4 goals in a single game", Rarity: "epic"},
	"manita":          {Code: "manita", Name: "Manita", Description: "5 goals in a single game", Rarity: "legendary"},
	"playmaker":       {Code: "playmaker", Name: "Garçom", Description: "3 assists in a single game", Rarity: "rare"},
	"balanced_player": {Code: "balanced_player", Name: "Completo", Description: "2 goals and 2 assists in the same game", Rarity: "rare"},
	"mvp_streak_3":    {Code: "mvp_streak_3", Name: "Craque da Semana", Description: "MVP in 3 consecutive games", Rarity: "epic"},
	"veteran_50":      {Code: "veteran_50", Name: "Veterano", Description: "50 games played", Rarity: "rare"},
	"veteran_100":     {Code: "veteran_100", Name: "Lenda da Várzea", Description: "100 games played", Rarity: "epic"},
	"level_5":         {Code: "level_5", Name: "Nível 5", Description: "Reached level 5", Rarity: "common"},
	"level_10":        {Code: "level_10", Name: "Nível 10", Description: "Reached level 10", Rarity: "epic"},
	"clean_sheet":     {Code: "clean_sheet", Name: "Jogo Limpo", Description: "No goals conceded as goalkeeper", Rarity: "rare"},
	"paredao":         {Code: "paredao", Name: "Paredão", Description: "Clean sheet with 5+ saves", Rarity: "epic"},
	"defensive_wall":  {Code: "defensive_wall", Name: "Muralha", Description: "10+ saves in a single game", Rarity: "epic"},
	"winner_25":       {Code: "winner_25", Name: "Vencedor", Description: "25 games won", Rarity: "rare"},
	"winner_50":       {Code: "winner_50", Name: "Campeão", Description: "50 games won", Rarity: "epic"},
}
