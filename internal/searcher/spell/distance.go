package spell

const (
	insertCost     = 1
	deleteCost     = 1
	substituteCost = 2
)

// EditDistance is the Levenshtein distance from a to b over runes with
// insertions and deletions costing 1 and substitutions 2.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j * insertCost
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i * deleteCost
		for j := 1; j <= len(rb); j++ {
			sub := prev[j-1]
			if ra[i-1] != rb[j-1] {
				sub += substituteCost
			}
			curr[j] = min(prev[j]+deleteCost, curr[j-1]+insertCost, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// Jaccard is |A∩B| / |A∪B| for sets of the given sizes sharing inter
// elements, clamped to [0, 1]. An empty union gives 0.
func Jaccard(szA, szB, inter int) float64 {
	union := szA + szB - inter
	if union <= 0 || inter <= 0 {
		return 0
	}
	j := float64(inter) / float64(union)
	return min(max(j, 0), 1)
}
