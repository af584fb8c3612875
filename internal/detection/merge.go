package detection

import (
	"sort"
	"strings"

	"github.com/tidwall/rtree"
)

// Merge collapses overlapping or adjacent detections into a canonical set.
//
// Detections are visited in descending (confidence, area) order; ties keep
// their input order. Each unvisited detection seeds a region that absorbs
// every later detection whose overlap ratio with it exceeds threshold, or
// that sits near it on the same line. The seed grows with each absorption
// and is checked again until nothing more joins. Absorbing takes the union
// box and the higher confidence. The region text is its distinct non-empty
// texts in first-seen order joined by a space, and its source is the
// distinct sources joined by "+".
//
// Passes repeat until one pass absorbs nothing, so no two members of the
// result overlap beyond threshold or are near each other, and merging the
// result again returns it unchanged.
func Merge(set RegionSet, threshold float64) RegionSet {
	current := set.Items()
	for {
		next, changed := mergePass(current, threshold)
		if !changed {
			return RegionSet{items: next}
		}
		current = next
	}
}

func mergePass(ds []Detection, threshold float64) ([]Detection, bool) {
	order := append([]Detection(nil), ds...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Confidence != order[j].Confidence {
			return order[i].Confidence > order[j].Confidence
		}
		return order[i].Area() > order[j].Area()
	})

	var tree rtree.RTreeG[int]
	for i, d := range order {
		lo, hi := treeRect(d.Box, 0)
		tree.Insert(lo, hi, i)
	}

	used := make([]bool, len(order))
	merged := make([]Detection, 0, len(order))
	changed := false
	for i := range order {
		if used[i] {
			continue
		}
		used[i] = true
		lo, hi := treeRect(order[i].Box, 0)
		tree.Delete(lo, hi, i)

		region := order[i]
		texts := newJoiner(" ")
		texts.add(region.Text)
		sources := newJoiner("+")
		sources.add(strings.Split(region.Source, "+")...)
		for {
			// Anything that can overlap or be near the region intersects
			// the region grown by the near distance.
			var candidates []int
			lo, hi := treeRect(region.Box, nearDistance)
			tree.Search(lo, hi, func(_, _ [2]float64, j int) bool {
				candidates = append(candidates, j)
				return true
			})
			sort.Ints(candidates)

			absorbed := false
			for _, j := range candidates {
				if used[j] {
					continue
				}
				other := order[j]
				if region.OverlapRatio(other.Box) <= threshold && !region.Near(other.Box) {
					continue
				}
				region.Box = region.Union(other.Box)
				region.Confidence = max(region.Confidence, other.Confidence)
				texts.add(other.Text)
				sources.add(strings.Split(other.Source, "+")...)
				used[j] = true
				lo, hi := treeRect(other.Box, 0)
				tree.Delete(lo, hi, j)
				absorbed = true
				changed = true
			}
			if !absorbed {
				break
			}
		}
		region.Text = texts.String()
		region.Source = sources.String()
		merged = append(merged, region)
	}
	return merged, changed
}

// joiner collects distinct non-empty parts in insertion order.
type joiner struct {
	sep   string
	seen  map[string]bool
	parts []string
}

func newJoiner(sep string) *joiner {
	return &joiner{sep: sep, seen: make(map[string]bool)}
}

func (j *joiner) add(parts ...string) {
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || j.seen[p] {
			continue
		}
		j.seen[p] = true
		j.parts = append(j.parts, p)
	}
}

func (j *joiner) String() string {
	return strings.Join(j.parts, j.sep)
}

func treeRect(b Box, grow int) ([2]float64, [2]float64) {
	return [2]float64{float64(b.X - grow), float64(b.Y - grow)},
		[2]float64{float64(b.X + b.Width + grow), float64(b.Y + b.Height + grow)}
}
