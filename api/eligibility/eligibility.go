/* eligibility.go
 * Pure functions for validating players and teams against a tournament's rank bracket
 * and match history requirements. No I/O happens here; callers supply the ranked match
 * counts they fetched from the match history provider.
 */

package eligibility

import (
	"fmt"
	"math"
	"strings"

	"tourney-bot/api/shared"
)

// DefaultMinRankedMatches is the ranked match count a player needs before joining
// any tournament
const DefaultMinRankedMatches = 200

// RankRange is the inclusive numeric rank tier band a bracket label maps to
type RankRange struct {
	Min int
	Max int
}

// Contains reports whether a rank tier falls inside the range
func (r RankRange) Contains(tier int) bool {
	return tier >= r.Min && tier <= r.Max
}

// Fixed mapping from medal names to rank tier bands. The tens digit of a tier is
// the medal, the ones digit the star count.
var medalRanges = map[string]RankRange{
	"herald":   {10, 19},
	"guardian": {20, 29},
	"crusader": {30, 39},
	"archon":   {40, 49},
	"legend":   {50, 59},
	"ancient":  {60, 69},
	"divine":   {70, 79},
	"immortal": {80, 90},
}

// ParseBracket resolves a bracket label to its rank tier range. Labels are either a
// single medal name ("Archon") or a span ("Archon-Legend") covering everything from
// the first medal's floor to the second medal's ceiling. An unknown medal name is a
// configuration error, not a silent empty range.
func ParseBracket(label string) (RankRange, error) {
	parts := strings.Split(strings.TrimSpace(label), "-")
	if len(parts) == 0 || parts[0] == "" {
		return RankRange{}, fmt.Errorf("%w: %q", shared.ErrUnknownBracket, label)
	}

	lo, ok := medalRanges[strings.ToLower(strings.TrimSpace(parts[0]))]
	if !ok {
		return RankRange{}, fmt.Errorf("%w: %q", shared.ErrUnknownBracket, label)
	}
	hi := lo
	if len(parts) > 1 {
		hi, ok = medalRanges[strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))]
		if !ok {
			return RankRange{}, fmt.Errorf("%w: %q", shared.ErrUnknownBracket, label)
		}
	}
	if hi.Max < lo.Min {
		return RankRange{}, fmt.Errorf("%w: %q spans downwards", shared.ErrUnknownBracket, label)
	}
	return RankRange{Min: lo.Min, Max: hi.Max}, nil
}

// PlayerInfo is the view of a player the evaluator needs. RankedMatches comes from
// the match history provider, the rest from the player record.
type PlayerInfo struct {
	Username           string
	RankTier           *int
	RankedMatches      int
	PublicMatchHistory bool
}

// CheckPlayer validates a single player against a bracket. It returns every violated
// rule, not just the first; an empty slice means the player is eligible.
func CheckPlayer(p PlayerInfo, bracket RankRange, minRanked int) []string {
	violations := checkPlayerGates(p, minRanked)

	if p.RankTier == nil {
		violations = append(violations, fmt.Sprintf("%s has no calibrated rank tier", p.Username))
	} else if !bracket.Contains(*p.RankTier) {
		violations = append(violations, fmt.Sprintf("%s's rank tier %d is outside the allowed range %d-%d", p.Username, *p.RankTier, bracket.Min, bracket.Max))
	}
	return violations
}

// CheckTeam validates a team against a bracket. Each member is individually held to
// the match count and public history gates; the bracket gate applies to the team's
// average rank tier. Members without a calibrated tier are excluded from the average
// rather than counted as zero.
func CheckTeam(members []PlayerInfo, bracket RankRange, minRanked int) []string {
	var violations []string
	for _, m := range members {
		violations = append(violations, checkPlayerGates(m, minRanked)...)
	}

	sum, n := 0, 0
	for _, m := range members {
		if m.RankTier != nil {
			sum += *m.RankTier
			n++
		}
	}
	if n == 0 {
		violations = append(violations, "no team member has a calibrated rank tier")
		return violations
	}

	avg := int(math.Round(float64(sum) / float64(n)))
	if !bracket.Contains(avg) {
		violations = append(violations, fmt.Sprintf("team average rank tier %d is outside the allowed range %d-%d", avg, bracket.Min, bracket.Max))
	}
	return violations
}

// checkPlayerGates applies the per player gates that hold in every mode: ranked
// match count and public match history
func checkPlayerGates(p PlayerInfo, minRanked int) []string {
	var violations []string
	if p.RankedMatches < minRanked {
		violations = append(violations, fmt.Sprintf("%s has played %d ranked matches, %d required", p.Username, p.RankedMatches, minRanked))
	}
	if !p.PublicMatchHistory {
		violations = append(violations, fmt.Sprintf("%s's match history is not public", p.Username))
	}
	return violations
}
