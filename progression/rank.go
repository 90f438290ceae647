// progression/rank.go
package progression

// Rank 段位门槛
type Rank struct {
	ID       uint
	Name     string
	MinLevel int
}

// ResolveRank picks the rank with the greatest MinLevel not above level.
// When nothing matches it falls back to the lowest tier, and with no ranks
// at all to DefaultRankID.
func ResolveRank(ranks []Rank, level int) Rank {
	if len(ranks) == 0 {
		return Rank{ID: DefaultRankID}
	}

	var (
		best   Rank
		found  bool
		lowest = ranks[0]
	)
	for _, r := range ranks {
		if r.MinLevel < lowest.MinLevel {
			lowest = r
		}
		if r.MinLevel <= level && (!found || r.MinLevel > best.MinLevel) {
			best = r
			found = true
		}
	}
	if !found {
		return lowest
	}
	return best
}
