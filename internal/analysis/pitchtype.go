package analysis

import (
	"github.com/tndhk/No9-MLB-Pitch-by-Game/internal/table"
)

// pitchTypeNames maps Statcast pitch-type codes to display names.
var pitchTypeNames = map[string]string{
	"FF": "4-Seam Fastball",
	"FT": "2-Seam Fastball",
	"SI": "Sinker",
	"FC": "Cutter",
	"SL": "Slider",
	"ST": "Sweeper",
	"SV": "Slurve",
	"CH": "Changeup",
	"CU": "Curveball",
	"KC": "Knuckle Curve",
	"CS": "Slow Curve",
	"FS": "Splitter",
	"FO": "Forkball",
	"KN": "Knuckleball",
	"EP": "Eephus",
	"SC": "Screwball",
	"GY": "Gyroball",
	"PO": "Pitchout",
}

// PitchTypeName resolves a code to its display name. Unknown codes, and
// strings that are already display names, pass through unchanged, which
// is what makes the rewrites below idempotent.
func PitchTypeName(code string) string {
	if name, ok := pitchTypeNames[code]; ok {
		return name
	}
	return code
}

// RewritePitchTypes replaces pitch-type codes with display names across
// the per-inning result, in place.
func (a *InningAnalysis) RewritePitchTypes() {
	for inning, dist := range a.PitchTypeDistribution {
		a.PitchTypeDistribution[inning] = renameIntKeys(dist)
	}
}

// RewritePitchTypes replaces pitch-type codes with display names across
// the per-pitch-type result, in place.
func (a *PitchTypeAnalysis) RewritePitchTypes() {
	for i, code := range a.PitchTypes {
		a.PitchTypes[i] = PitchTypeName(code)
	}
	a.Usage = renameKeys(a.Usage)
	a.Velocity = renameKeys(a.Velocity)
	a.Effectiveness = renameKeys(a.Effectiveness)
	a.Location = renameKeys(a.Location)
	a.Movement = renameKeys(a.Movement)
}

// RewritePitchTypes replaces pitch-type codes with display names in the
// summary's pitch mix, in place.
func (s *Summary) RewritePitchTypes() {
	s.PitchTypeCounts = renameIntKeys(s.PitchTypeCounts)
}

// RewritePitchTypes returns a copy of the table with the pitch_type
// column rewritten to display names. Tables without the column are
// returned as-is.
func RewritePitchTypes(t *table.Table) *table.Table {
	if t.Empty() || !t.HasColumn("pitch_type") {
		return t
	}
	return t.WithColumn("pitch_type", func(r table.Row) table.Value {
		v := r["pitch_type"]
		if v.IsNull() {
			return v
		}
		return table.String(PitchTypeName(v.Text()))
	})
}

func renameKeys[V any](m map[string]V) map[string]V {
	if m == nil {
		return nil
	}
	out := make(map[string]V, len(m))
	for code, v := range m {
		out[PitchTypeName(code)] = v
	}
	return out
}

// renameIntKeys exists because count maps merge when two codes share a
// display name after renaming.
func renameIntKeys(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for code, n := range m {
		out[PitchTypeName(code)] += n
	}
	return out
}
