package index

import "sort"

// Intersect returns the postings of a whose DocID also appears in b. Both
// inputs must be sorted by DocID; so is the result.
func Intersect(a, b PostingsList) PostingsList {
	if len(a) == 0 || len(b) == 0 {
		return PostingsList{}
	}
	result := make(PostingsList, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID == b[j].DocID:
			result = append(result, a[i])
			i++
			j++
		case a[i].DocID < b[j].DocID:
			i++
		default:
			j++
		}
	}
	return result
}

// IntersectAll folds Intersect over the lists, shortest first, so the
// candidate set shrinks as early as possible. A nil or empty operand yields
// an empty result.
func IntersectAll(lists ...PostingsList) PostingsList {
	if len(lists) == 0 {
		return PostingsList{}
	}
	ordered := make([]PostingsList, len(lists))
	copy(ordered, lists)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) < len(ordered[j])
	})
	result := ordered[0]
	for _, next := range ordered[1:] {
		if len(result) == 0 {
			break
		}
		result = Intersect(result, next)
	}
	if result == nil {
		return PostingsList{}
	}
	return result
}

// PhraseMerge keeps the documents of b where some occurrence directly follows
// an occurrence in a. The emitted offsets are the matching offsets of b, so
// the result can be fed back as a for the next phrase word.
func PhraseMerge(a, b PostingsList) PostingsList {
	result := make(PostingsList, 0)
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID == b[j].DocID:
			if offsets := adjacentOffsets(a[i].Offsets, b[j].Offsets); len(offsets) > 0 {
				result = append(result, PostingsEntry{DocID: b[j].DocID, Offsets: offsets})
			}
			i++
			j++
		case a[i].DocID < b[j].DocID:
			i++
		default:
			j++
		}
	}
	return result
}

// adjacentOffsets returns every o2 in second such that o2-1 is in first.
// Offsets per document are short, the quadratic scan is fine.
func adjacentOffsets(first, second []int) []int {
	var matches []int
	for _, o2 := range second {
		for _, o1 := range first {
			if o2-o1 == 1 {
				matches = append(matches, o2)
				break
			}
		}
	}
	return matches
}

// Union merges two sorted lists by DocID. When both contain a document the
// entry from a is kept.
func Union(a, b PostingsList) PostingsList {
	result := make(PostingsList, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].DocID == b[j].DocID:
			result = append(result, a[i])
			i++
			j++
		case a[i].DocID < b[j].DocID:
			result = append(result, a[i])
			i++
		default:
			result = append(result, b[j])
			j++
		}
	}
	result = append(result, a[i:]...)
	result = append(result, b[j:]...)
	return result
}
