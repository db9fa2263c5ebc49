// Package analysis turns a table of pitch events into the per-inning,
// per-pitch-type, batted-ball, and whole-game summary views.
//
// Every operation fails softly: missing columns or empty input produce a
// result with Error set (or an empty table), never a panic or an error
// return. The upstream column set is not guaranteed, and a partially
// analyzable game is still worth rendering.
package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

const (
	errNoData         = "no pitch data"
	errMissingColumns = "required columns missing"
)

// VelocityStats summarizes one release-speed sample.
type VelocityStats struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	Min  float64 `json:"min"`
	Std  float64 `json:"std"` // sample standard deviation
}

// InningAnalysis is the per-inning view. Maps are keyed by the inning
// value rendered as text ("1", "2", ...); Innings lists them in order.
type InningAnalysis struct {
	Error                 string                    `json:"error,omitempty"`
	Innings               []int                     `json:"innings,omitempty"`
	Velocity              map[string]VelocityStats  `json:"velocity,omitempty"`
	PitchCount            map[string]int            `json:"pitch_count,omitempty"`
	StrikePercentage      map[string]float64        `json:"strike_percentage,omitempty"`
	WhiffPercentage       map[string]float64        `json:"whiff_percentage,omitempty"`
	PitchTypeDistribution map[string]map[string]int `json:"pitch_type_distribution,omitempty"`
}

// Usage is how often one pitch type was thrown.
type Usage struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Effectiveness is the outcome mix for one pitch type, each figure a
// percentage of that type's pitches.
type Effectiveness struct {
	StrikePercentage         float64 `json:"strike_percentage"`
	SwingingStrikePercentage float64 `json:"swinging_strike_percentage"`
	BallPercentage           float64 `json:"ball_percentage"`
	HitPercentage            float64 `json:"hit_percentage"`
}

// Location is where a pitch type crosses the plate, in feet from the
// center of the zone.
type Location struct {
	MeanX float64 `json:"mean_x"`
	MeanZ float64 `json:"mean_z"`
	StdX  float64 `json:"std_x"`
	StdZ  float64 `json:"std_z"`
}

// Movement is the mean break of a pitch type.
type Movement struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

// PitchTypeAnalysis is the per-pitch-type view, keyed by pitch-type code
// (or display name after the rewrite).
type PitchTypeAnalysis struct {
	Error         string                   `json:"error,omitempty"`
	PitchTypes    []string                 `json:"pitch_types,omitempty"`
	Usage         map[string]Usage         `json:"usage,omitempty"`
	Velocity      map[string]VelocityStats `json:"velocity,omitempty"`
	Effectiveness map[string]Effectiveness `json:"effectiveness,omitempty"`
	Location      map[string]Location      `json:"location,omitempty"`
	Movement      map[string]Movement      `json:"movement,omitempty"`
}

// Outcomes counts pitch results over a whole game.
type Outcomes struct {
	CalledStrikes    int     `json:"called_strikes"`
	SwingingStrikes  int     `json:"swinging_strikes"`
	Fouls            int     `json:"fouls"`
	Balls            int     `json:"balls"`
	Hits             int     `json:"hits"`
	StrikePercentage float64 `json:"strike_percentage"`
	BallPercentage   float64 `json:"ball_percentage"`
}

// Summary is the flattened whole-game view.
type Summary struct {
	Error           string         `json:"error,omitempty"`
	TotalPitches    int            `json:"total_pitches,omitempty"`
	PitchTypeCounts map[string]int `json:"pitch_type_counts,omitempty"`
	Velocity        *VelocityStats `json:"velocity,omitempty"`
	Outcomes        *Outcomes      `json:"outcomes,omitempty"`
	InningsPitched  int            `json:"innings_pitched,omitempty"`
	BattersFaced    int            `json:"batters_faced,omitempty"`
}

// ByInning groups pitches by the inning column and computes per-inning
// velocity, counts, strike and whiff rates, and the pitch-type mix.
// Metrics whose backing column is absent are left out of the result.
func ByInning(t *table.Table) InningAnalysis {
	if t.Empty() || !t.HasColumn("inning") {
		return InningAnalysis{Error: errMissingColumns}
	}

	groups := t.GroupBy("inning")
	sort.SliceStable(groups, func(i, j int) bool {
		a, _ := groups[i].Key.Float64()
		b, _ := groups[j].Key.Float64()
		return a < b
	})

	out := InningAnalysis{
		PitchCount: map[string]int{},
	}
	if t.HasColumn("release_speed") {
		out.Velocity = map[string]VelocityStats{}
	}
	if t.HasColumn("type") {
		out.StrikePercentage = map[string]float64{}
	}
	if t.HasColumn("description") {
		out.WhiffPercentage = map[string]float64{}
	}
	if t.HasColumn("pitch_type") {
		out.PitchTypeDistribution = map[string]map[string]int{}
	}

	for _, g := range groups {
		key := g.Key.Text()
		if n, ok := g.Key.Int64(); ok {
			out.Innings = append(out.Innings, int(n))
		}

		out.PitchCount[key] = g.Rows.Len()

		if out.Velocity != nil {
			if stats, ok := velocityStats(floatColumn(g.Rows, "release_speed")); ok {
				out.Velocity[key] = stats
			}
		}
		if out.StrikePercentage != nil {
			// S = swinging strike, X = ball in play; both count as strikes
			// in the Statcast type column.
			strikes := 0
			for _, v := range g.Rows.Column("type") {
				if s := v.Text(); s == "S" || s == "X" {
					strikes++
				}
			}
			out.StrikePercentage[key] = percentage(strikes, g.Rows.Len())
		}
		if out.WhiffPercentage != nil {
			swings := countContains(g.Rows, "description", "swing")
			whiffs := countContains(g.Rows, "description", "swinging_strike")
			out.WhiffPercentage[key] = percentage(whiffs, swings)
		}
		if out.PitchTypeDistribution != nil {
			dist := map[string]int{}
			for _, v := range g.Rows.Column("pitch_type") {
				if v.IsNull() || v.Text() == "" {
					continue
				}
				dist[v.Text()]++
			}
			out.PitchTypeDistribution[key] = dist
		}
	}
	return out
}

// ByPitchType groups pitches by pitch-type code, skipping rows with an
// unknown type, and computes usage, velocity, effectiveness, plate
// location, and movement per type.
func ByPitchType(t *table.Table) PitchTypeAnalysis {
	if t.Empty() || !t.HasColumn("pitch_type") {
		return PitchTypeAnalysis{Error: errMissingColumns}
	}

	groups := t.GroupBy("pitch_type")
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key.Text() < groups[j].Key.Text()
	})

	hasSpeed := t.HasColumn("release_speed")
	hasDesc := t.HasColumn("description")
	hasLocation := t.HasColumn("plate_x") && t.HasColumn("plate_z")
	hasMovement := t.HasColumn("pfx_x") && t.HasColumn("pfx_z")

	out := PitchTypeAnalysis{Usage: map[string]Usage{}}
	if hasSpeed {
		out.Velocity = map[string]VelocityStats{}
	}
	if hasDesc {
		out.Effectiveness = map[string]Effectiveness{}
	}
	if hasLocation {
		out.Location = map[string]Location{}
	}
	if hasMovement {
		out.Movement = map[string]Movement{}
	}

	total := t.Len()
	for _, g := range groups {
		code := g.Key.Text()
		if g.Key.IsNull() || code == "" {
			continue
		}
		out.PitchTypes = append(out.PitchTypes, code)

		count := g.Rows.Len()
		out.Usage[code] = Usage{Count: count, Percentage: percentage(count, total)}

		if hasSpeed {
			if stats, ok := velocityStats(floatColumn(g.Rows, "release_speed")); ok {
				out.Velocity[code] = stats
			}
		}
		if hasDesc {
			called := countContains(g.Rows, "description", "called_strike")
			swinging := countContains(g.Rows, "description", "swinging_strike")
			fouls := countContains(g.Rows, "description", "foul")
			balls := countContains(g.Rows, "description", "ball")
			hits := countContains(g.Rows, "description", "hit")
			out.Effectiveness[code] = Effectiveness{
				StrikePercentage:         percentage(called+swinging+fouls, count),
				SwingingStrikePercentage: percentage(swinging, count),
				BallPercentage:           percentage(balls, count),
				HitPercentage:            percentage(hits, count),
			}
		}
		if hasLocation {
			xs := floatColumn(g.Rows, "plate_x")
			zs := floatColumn(g.Rows, "plate_z")
			out.Location[code] = Location{
				MeanX: mean(xs), MeanZ: mean(zs),
				StdX: sampleStd(xs), StdZ: sampleStd(zs),
			}
		}
		if hasMovement {
			out.Movement[code] = Movement{
				Horizontal: mean(floatColumn(g.Rows, "pfx_x")),
				Vertical:   mean(floatColumn(g.Rows, "pfx_z")),
			}
		}
	}
	return out
}

// battedBallColumns are guaranteed present (null-filled if absent) in the
// BattedBalls output so downstream rendering never branches on presence.
var battedBallColumns = []string{
	"launch_speed", "launch_angle", "hit_distance_sc", "hit_location", "hc_x", "hc_y",
}

// BattedBalls filters the table to rows where contact was made and
// augments it with hit_type and hit_result columns. A table without the
// description column, or with no contact rows, yields an empty table.
func BattedBalls(t *table.Table) *table.Table {
	if t.Empty() || !t.HasColumn("description") {
		return table.New()
	}

	batted := t.Filter(func(r table.Row) bool {
		v, ok := r["description"]
		return ok && !v.IsNull() && strings.Contains(strings.ToLower(v.Text()), "hit")
	})
	if batted.Empty() {
		return table.New()
	}

	for _, col := range battedBallColumns {
		if !batted.HasColumn(col) {
			batted = batted.WithColumn(col, func(table.Row) table.Value { return table.Null() })
		}
	}

	if batted.HasColumn("bb_type") {
		batted = batted.WithColumn("hit_type", func(r table.Row) table.Value { return r["bb_type"] })
	} else {
		batted = batted.WithColumn("hit_type", func(r table.Row) table.Value {
			angle, ok := r["launch_angle"].Float64()
			if !ok {
				return table.Null()
			}
			return table.String(classifyLaunchAngle(angle))
		})
	}

	if batted.HasColumn("events") {
		batted = batted.WithColumn("hit_result", func(r table.Row) table.Value { return r["events"] })
	} else {
		batted = batted.WithColumn("hit_result", func(table.Row) table.Value { return table.String("unknown") })
	}
	return batted
}

// classifyLaunchAngle is the coarse batted-ball taxonomy used when the
// upstream bb_type column is missing.
func classifyLaunchAngle(angle float64) string {
	switch {
	case angle < 10:
		return "ground_ball"
	case angle < 25:
		return "line_drive"
	case angle < 50:
		return "fly_ball"
	default:
		return "pop_up"
	}
}

// Summarize flattens the whole game: totals, pitch mix, velocity, outcome
// counts, innings pitched, and batters faced.
func Summarize(t *table.Table) Summary {
	if t.Empty() {
		return Summary{Error: errNoData}
	}

	out := Summary{TotalPitches: t.Len()}

	if t.HasColumn("pitch_type") {
		out.PitchTypeCounts = map[string]int{}
		for _, v := range t.Column("pitch_type") {
			if v.IsNull() || v.Text() == "" {
				continue
			}
			out.PitchTypeCounts[v.Text()]++
		}
	}

	if t.HasColumn("release_speed") {
		if stats, ok := velocityStats(floatColumn(t, "release_speed")); ok {
			out.Velocity = &stats
		}
	}

	if t.HasColumn("description") {
		called := countContains(t, "description", "called_strike")
		swinging := countContains(t, "description", "swinging_strike")
		fouls := countContains(t, "description", "foul")
		balls := countContains(t, "description", "ball")
		hits := countContains(t, "description", "hit")
		out.Outcomes = &Outcomes{
			CalledStrikes:    called,
			SwingingStrikes:  swinging,
			Fouls:            fouls,
			Balls:            balls,
			Hits:             hits,
			StrikePercentage: percentage(called+swinging+fouls, t.Len()),
			BallPercentage:   percentage(balls, t.Len()),
		}
	}

	if t.HasColumn("inning") {
		maxInning := 0
		for _, v := range t.Column("inning") {
			if n, ok := v.Int64(); ok && int(n) > maxInning {
				maxInning = int(n)
			}
		}
		out.InningsPitched = maxInning
	}

	if t.HasColumn("at_bat_number") {
		out.BattersFaced = len(t.Unique("at_bat_number"))
	}
	return out
}

// ---- shared numeric helpers ----

// floatColumn collects the numeric cells of a column, skipping nulls and
// non-numeric values.
func floatColumn(t *table.Table, name string) []float64 {
	if !t.HasColumn(name) {
		return nil
	}
	var out []float64
	for _, v := range t.Column(name) {
		if f, ok := v.Float64(); ok && !math.IsNaN(f) {
			out = append(out, f)
		}
	}
	return out
}

// countContains counts rows whose cell contains the substring,
// case-insensitively. Null cells never match.
func countContains(t *table.Table, col, substr string) int {
	count := 0
	for _, v := range t.Column(col) {
		if v.IsNull() {
			continue
		}
		if strings.Contains(strings.ToLower(v.Text()), substr) {
			count++
		}
	}
	return count
}

// percentage is numerator/denominator*100 with a zero denominator
// evaluating to 0.
func percentage(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// sampleStd is the n-1 standard deviation. Fewer than two samples have no
// spread to estimate; 0 is returned.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := mean(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// velocityStats summarizes a speed sample; ok is false when no numeric
// values were present.
func velocityStats(vals []float64) (VelocityStats, bool) {
	if len(vals) == 0 {
		return VelocityStats{}, false
	}
	stats := VelocityStats{Mean: mean(vals), Max: vals[0], Min: vals[0], Std: sampleStd(vals)}
	for _, v := range vals[1:] {
		if v > stats.Max {
			stats.Max = v
		}
		if v < stats.Min {
			stats.Min = v
		}
	}
	return stats, true
}
