// Package mlbstats provides the client for the MLB Stats API.
//
// It backs two concerns: the roster tier of pitcher search (team rosters
// filtered to position P) and the supplementary game-info lookup used to
// fill opponent/stadium fields the Statcast CSV did not carry.
package mlbstats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://statsapi.mlb.com/api/v1"

// Team is one MLB team as returned by the teams endpoint.
type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RosterEntry is one player on a team roster.
type RosterEntry struct {
	Person struct {
		ID       int    `json:"id"`
		FullName string `json:"fullName"`
	} `json:"person"`
	Position struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"position"`
}

// PlayerMatch is a search hit: a roster entry resolved to its team.
type PlayerMatch struct {
	ID       int
	Name     string
	TeamID   int
	TeamName string
	Position string
}

// GameInfo is the metadata returned for one game id.
type GameInfo struct {
	HomeTeam string
	AwayTeam string
	Venue    string
}

// Client talks to the MLB Stats API. Team and roster responses are cached
// in memory with a TTL; search walks every roster, and the data changes
// on the order of days, not requests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cacheTTL   time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	teams     []Team
	teamsAt   time.Time
	rosters   map[int][]RosterEntry
	rostersAt map[int]time.Time
}

// NewClient creates an MLB Stats API client.
func NewClient(timeout, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		cacheTTL:   cacheTTL,
		logger:     logger,
		rosters:    make(map[int][]RosterEntry),
		rostersAt:  make(map[int]time.Time),
	}
}

// SetBaseURL overrides the endpoint, for tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mlbstats %s returned %d", path, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Teams returns all MLB teams, served from cache while fresh.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	c.mu.Lock()
	if c.teams != nil && time.Since(c.teamsAt) < c.cacheTTL {
		teams := c.teams
		c.mu.Unlock()
		return teams, nil
	}
	c.mu.Unlock()

	params := url.Values{}
	params.Set("sportId", "1") // MLB
	var payload struct {
		Teams []Team `json:"teams"`
	}
	if err := c.get(ctx, "/teams", params, &payload); err != nil {
		return nil, fmt.Errorf("fetch teams: %w", err)
	}

	c.mu.Lock()
	c.teams = payload.Teams
	c.teamsAt = time.Now()
	c.mu.Unlock()
	return payload.Teams, nil
}

// Roster returns the active roster for one team, served from cache while fresh.
func (c *Client) Roster(ctx context.Context, teamID int) ([]RosterEntry, error) {
	c.mu.Lock()
	if r, ok := c.rosters[teamID]; ok && time.Since(c.rostersAt[teamID]) < c.cacheTTL {
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	var payload struct {
		Roster []RosterEntry `json:"roster"`
	}
	if err := c.get(ctx, fmt.Sprintf("/teams/%d/roster", teamID), nil, &payload); err != nil {
		return nil, fmt.Errorf("fetch roster %d: %w", teamID, err)
	}

	c.mu.Lock()
	c.rosters[teamID] = payload.Roster
	c.rostersAt[teamID] = time.Now()
	c.mu.Unlock()
	return payload.Roster, nil
}

// SearchPlayers finds players by case-insensitive substring against the full
// name, optionally restricted to a position abbreviation such as "P".
// Per-roster failures are logged and skipped so one bad team does not sink
// the whole search.
func (c *Client) SearchPlayers(ctx context.Context, name, position string) ([]PlayerMatch, error) {
	teams, err := c.Teams(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(name)
	var matches []PlayerMatch
	for _, team := range teams {
		roster, err := c.Roster(ctx, team.ID)
		if err != nil {
			c.logger.Warn("roster fetch failed", "team_id", team.ID, "error", err)
			continue
		}
		for _, entry := range roster {
			if !strings.Contains(strings.ToLower(entry.Person.FullName), needle) {
				continue
			}
			if position != "" && entry.Position.Abbreviation != position {
				continue
			}
			matches = append(matches, PlayerMatch{
				ID:       entry.Person.ID,
				Name:     entry.Person.FullName,
				TeamID:   team.ID,
				TeamName: team.Name,
				Position: entry.Position.Abbreviation,
			})
		}
	}
	c.logger.Info("player search", "query", name, "matches", len(matches))
	return matches, nil
}

// GameInfo fetches home/away team names and venue for one game id from the
// live feed endpoint.
func (c *Client) GameInfo(ctx context.Context, gamePK int) (GameInfo, error) {
	var payload struct {
		GameData struct {
			Teams struct {
				Home struct {
					Name string `json:"name"`
				} `json:"home"`
				Away struct {
					Name string `json:"name"`
				} `json:"away"`
			} `json:"teams"`
			Venue struct {
				Name string `json:"name"`
			} `json:"venue"`
		} `json:"gameData"`
	}
	if err := c.get(ctx, fmt.Sprintf("/game/%d/feed/live", gamePK), nil, &payload); err != nil {
		return GameInfo{}, fmt.Errorf("fetch game %d: %w", gamePK, err)
	}
	return GameInfo{
		HomeTeam: payload.GameData.Teams.Home.Name,
		AwayTeam: payload.GameData.Teams.Away.Name,
		Venue:    payload.GameData.Venue.Name,
	}, nil
}
