// Package mlb holds the domain entities shared by the acquisition, cache,
// and analysis layers.
package mlb

// Pitcher identifies one pitcher by the upstream-assigned MLBAM id.
// Team and throwing hand are best-effort; the search tiers cannot always
// supply them.
type Pitcher struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Team   string `json:"team,omitempty" db:"team"`
	Throws string `json:"throws,omitempty" db:"throws"` // "R", "L", or ""
}

// Game is one start by one pitcher on one date. GamePK is the upstream
// numeric game id and is zero when the source data never carried one;
// it disambiguates same-date doubleheaders when present.
type Game struct {
	Date      string `json:"date" db:"date"` // YYYY-MM-DD
	PitcherID string `json:"pitcher_id" db:"pitcher_id"`
	GamePK    int    `json:"game_pk,omitempty" db:"game_pk"`
	Opponent  string `json:"opponent,omitempty" db:"opponent"`
	Stadium   string `json:"stadium,omitempty" db:"stadium"`
	HomeAway  string `json:"home_away,omitempty" db:"home_away"` // "home", "away", or ""
}
