package extract

import "sort"

// spans is a sorted set of disjoint half-open byte ranges already claimed by a match.
type spans []match

// claim records [start, end) unless it overlaps a claimed range, and reports whether it did.
func (s *spans) claim(start, end int) bool {
	ranges := *s
	// first range that ends after start
	i := sort.Search(len(ranges), func(i int) bool { return ranges[i].end > start })
	if i < len(ranges) && ranges[i].start < end {
		return false
	}

	ranges = append(ranges, match{})
	copy(ranges[i+1:], ranges[i:])
	ranges[i] = match{start: start, end: end}
	*s = ranges
	return true
}

func sortMentions(ms []mention) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].start < ms[j].start })
}
