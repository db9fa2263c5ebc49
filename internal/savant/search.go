package savant

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/mlb"
)

// Pitcher-eligible position codes accepted by the JSON search tier.
// TWP is the two-way-player designation.
var pitcherPositions = map[string]bool{
	"P": true, "SP": true, "RP": true, "TWP": true,
}

// searchTier is one strategy in the search fallback chain. An empty result
// with a nil error means "no match, try the next tier".
type searchTier struct {
	name string
	run  func(ctx context.Context, name string) ([]mlb.Pitcher, error)
}

// SearchPitcher finds pitchers by name. The upstream search contract is
// unstable, so four tiers are tried in order: structured JSON from the
// search endpoint, pattern extraction from its markup rendition, an MLB
// Stats roster search restricted to pitchers, and finally the embedded
// directory of well-known pitchers. Precision is deliberately traded for
// availability: a degraded upstream should still produce a usable pick
// list.
func (c *Client) SearchPitcher(ctx context.Context, name string) ([]mlb.Pitcher, error) {
	body, fetchErr := c.fetchSearchPage(ctx, name)

	tiers := []searchTier{
		{name: "json", run: func(ctx context.Context, name string) ([]mlb.Pitcher, error) {
			return parseSearchJSON(body), nil
		}},
		{name: "markup", run: func(ctx context.Context, name string) ([]mlb.Pitcher, error) {
			return parseSearchMarkup(body)
		}},
		{name: "roster", run: c.searchRoster},
		{name: "directory", run: func(ctx context.Context, name string) ([]mlb.Pitcher, error) {
			return searchDirectory(name), nil
		}},
	}

	if fetchErr != nil {
		// Endpoint unreachable: the body-parsing tiers cannot answer, but
		// roster search and the embedded directory still can.
		c.logger.Warn("pitcher search endpoint unavailable", "query", name, "error", fetchErr)
		tiers = tiers[2:]
	}

	for _, tier := range tiers {
		matches, err := tier.run(ctx, name)
		if err != nil {
			c.logger.Warn("search tier failed", "tier", tier.name, "query", name, "error", err)
			continue
		}
		if len(matches) > 0 {
			c.logger.Info("pitcher search", "tier", tier.name, "query", name, "matches", len(matches))
			return matches, nil
		}
	}

	c.logger.Warn("pitcher search found no matches", "query", name)
	return nil, nil
}

// searchRoster resolves the query against MLB Stats team rosters, keeping
// only pitchers. Answers nothing when no roster collaborator was wired.
func (c *Client) searchRoster(ctx context.Context, name string) ([]mlb.Pitcher, error) {
	if c.roster == nil {
		return nil, nil
	}
	matches, err := c.roster.SearchPlayers(ctx, name, "P")
	if err != nil {
		return nil, err
	}
	pitchers := make([]mlb.Pitcher, 0, len(matches))
	for _, m := range matches {
		pitchers = append(pitchers, mlb.Pitcher{
			ID:   strconv.Itoa(m.ID),
			Name: m.Name,
			Team: m.TeamName,
		})
	}
	return pitchers, nil
}

func (c *Client) fetchSearchPage(ctx context.Context, name string) ([]byte, error) {
	params := url.Values{}
	params.Set("search", name)
	params.Set("position", "P")
	return c.http.Get(ctx, c.searchURL, params, nil)
}

// flexID accepts both quoted and bare numeric ids; the endpoint has
// shipped both.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexID(s)
	return nil
}

// searchResult is the structured shape of one search hit. The endpoint has
// shipped both "results" and "players" as the list key.
type searchResult struct {
	ID       flexID `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Team     string `json:"team"`
}

// parseSearchJSON extracts pitchers from a JSON search response, filtered to
// pitcher-eligible position codes. Returns nil when the body is not JSON.
func parseSearchJSON(body []byte) []mlb.Pitcher {
	var payload struct {
		Results []searchResult `json:"results"`
		Players []searchResult `json:"players"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	results := payload.Results
	if len(results) == 0 {
		results = payload.Players
	}

	var pitchers []mlb.Pitcher
	for _, r := range results {
		if r.Position != "" && !pitcherPositions[r.Position] {
			continue
		}
		id := string(r.ID)
		if id == "" || r.Name == "" {
			continue
		}
		pitchers = append(pitchers, mlb.Pitcher{ID: id, Name: r.Name, Team: r.Team})
	}
	return pitchers
}

// Savant player links carry the MLBAM id as the trailing path segment:
// /savant-player/yoshinobu-yamamoto-993772
var playerHrefRe = regexp.MustCompile(`savant-player/(?:[a-z0-9-]*-)?(\d+)$`)

// parseSearchMarkup extracts name/id pairs from the HTML rendition of the
// search page. Used when the endpoint falls back to serving markup.
func parseSearchMarkup(body []byte) ([]mlb.Pitcher, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var pitchers []mlb.Pitcher
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		m := playerHrefRe.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id := m[1]
		name := normalizeSpace(sel.Text())
		if name == "" || seen[id] {
			return
		}
		if _, err := strconv.Atoi(id); err != nil {
			return
		}
		seen[id] = true
		pitchers = append(pitchers, mlb.Pitcher{ID: id, Name: name})
	})
	return pitchers, nil
}

var spaceRe = regexp.MustCompile(`\s+`)

func normalizeSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}
