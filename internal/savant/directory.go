package savant

import (
	"sort"
	"strings"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
)

// directoryEntry is one well-known pitcher in the embedded fallback
// directory. Keywords cover team names, nicknames, and nationality terms so
// that loose queries like "dodgers" or "japanese" still surface someone.
type directoryEntry struct {
	name     string
	team     string
	throws   string
	keywords []string
}

// The directory is the last search tier: a small static table of prominent
// starters kept for when the upstream search contract is down entirely.
var pitcherDirectory = map[string]directoryEntry{
	"660271": {
		name: "Shohei Ohtani", team: "Los Angeles Dodgers", throws: "R",
		keywords: []string{"ohtani", "shohei", "angels", "dodgers", "japan", "japanese", "two-way"},
	},
	"543037": {
		name: "Gerrit Cole", team: "New York Yankees", throws: "R",
		keywords: []string{"cole", "gerrit", "yankees", "pirates", "astros"},
	},
	"453286": {
		name: "Max Scherzer", team: "Texas Rangers", throws: "R",
		keywords: []string{"scherzer", "max", "mets", "nationals", "tigers", "dodgers", "rangers"},
	},
	"594798": {
		name: "Jacob deGrom", team: "Texas Rangers", throws: "R",
		keywords: []string{"degrom", "jacob", "mets", "rangers"},
	},
	"506433": {
		name: "Yu Darvish", team: "San Diego Padres", throws: "R",
		keywords: []string{"darvish", "yu", "japan", "japanese", "padres", "cubs", "rangers", "dodgers"},
	},
	"669011": {
		name: "Kodai Senga", team: "New York Mets", throws: "R",
		keywords: []string{"senga", "kodai", "japan", "japanese", "mets"},
	},
	"993772": {
		name: "Yoshinobu Yamamoto", team: "Los Angeles Dodgers", throws: "R",
		keywords: []string{"yamamoto", "yoshinobu", "japan", "japanese", "dodgers"},
	},
	"682397": {
		name: "Shota Imanaga", team: "Chicago Cubs", throws: "L",
		keywords: []string{"imanaga", "shota", "japan", "japanese", "cubs"},
	},
	"676265": {
		name: "Roki Sasaki", team: "Los Angeles Dodgers", throws: "R",
		keywords: []string{"sasaki", "roki", "japan", "japanese", "dodgers"},
	},
	"605483": {
		name: "Blake Snell", team: "San Francisco Giants", throws: "L",
		keywords: []string{"snell", "blake", "rays", "padres", "giants"},
	},
	"608566": {
		name: "Aaron Nola", team: "Philadelphia Phillies", throws: "R",
		keywords: []string{"nola", "aaron", "phillies"},
	},
	"519242": {
		name: "Clayton Kershaw", team: "Los Angeles Dodgers", throws: "L",
		keywords: []string{"kershaw", "clayton", "dodgers"},
	},
	"425844": {
		name: "Justin Verlander", team: "Houston Astros", throws: "R",
		keywords: []string{"verlander", "justin", "astros", "tigers", "mets"},
	},
	"592789": {
		name: "Marcus Stroman", team: "New York Yankees", throws: "R",
		keywords: []string{"stroman", "marcus", "yankees", "cubs", "mets", "blue jays"},
	},
}

// searchDirectory matches the query case-insensitively against each entry's
// name, then against its keyword list in either containment direction.
// Results come back in stable id order.
func searchDirectory(query string) []mlb.Pitcher {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil
	}

	ids := make([]string, 0, len(pitcherDirectory))
	for id := range pitcherDirectory {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var matches []mlb.Pitcher
	for _, id := range ids {
		entry := pitcherDirectory[id]
		if directoryMatches(needle, entry) {
			matches = append(matches, mlb.Pitcher{
				ID:     id,
				Name:   entry.name,
				Team:   entry.team,
				Throws: entry.throws,
			})
		}
	}
	return matches
}

func directoryMatches(needle string, entry directoryEntry) bool {
	if strings.Contains(strings.ToLower(entry.name), needle) {
		return true
	}
	for _, kw := range entry.keywords {
		if strings.Contains(kw, needle) || strings.Contains(needle, kw) {
			return true
		}
	}
	return false
}

// DirectoryPitcher returns the directory entry for an id, if present.
// Used as the identity fallback when neither the store nor the upstream
// search knows the pitcher.
func DirectoryPitcher(id string) (mlb.Pitcher, bool) {
	entry, ok := pitcherDirectory[id]
	if !ok {
		return mlb.Pitcher{}, false
	}
	return mlb.Pitcher{ID: id, Name: entry.name, Team: entry.team, Throws: entry.throws}, true
}
