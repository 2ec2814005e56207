package align

import "readrepeat/internal/textutil"

const (
	// matchThreshold is the similarity a window word must exceed to count
	// as a match for a sentence word.
	matchThreshold = 0.5
	// minWindowScore is the lowest window score accepted as an alignment.
	minWindowScore = 0.3
)

// WindowScore scores a transcript window against sentence tokens with greedy
// one-to-one matching. Each sentence token takes the most similar unused
// window token; a pair counts as matched only above 0.5 similarity. The
// score is the mean of coverage and average similarity, multiplied by 0.8
// when the window is less than half or more than double the sentence length.
// Empty inputs score 0.
func WindowScore(sentence, window []string) float64 {
	ns := normalizeAll(sentence)
	nw := normalizeAll(window)
	return scoreWindow(len(ns), 0, len(nw)-1, func(i, j int) float64 {
		return textutil.CompareNormalized(ns[i], nw[j])
	})
}

// BestWindow searches for the best window for sentence in transcript starting
// at index from. Start positions range over [from, min(from+n+5, bound)) with
// bound = min(from+3n+10, len(transcript)); window lengths range over
// [max(1, n-2), 2n+2] and stop once the window would run past the
// transcript. Ties keep the first window found. The second result is false
// when nothing scores at least 0.3.
func BestWindow(sentence, transcript []string, from int) (Window, bool) {
	return bestWindow(normalizeAll(sentence), normalizeAll(transcript), from)
}

func bestWindow(sentence, transcript []string, from int) (Window, bool) {
	n := len(sentence)
	m := len(transcript)
	if from < 0 {
		from = 0
	}
	if n == 0 || from >= m {
		return Window{}, false
	}

	bound := min(from+3*n+10, m)
	lastStart := min(from+n+5, bound)
	sims := newSimilarityGrid(sentence, transcript, from)

	best := Window{Score: -1}
	found := false
	for start := from; start < lastStart; start++ {
		for size := max(1, n-2); size <= 2*n+2; size++ {
			end := start + size - 1
			if end >= m {
				break
			}
			score := scoreWindow(n, start, end, sims.at)
			if score > best.Score {
				best = Window{Start: start, End: end, Score: score}
				found = true
			}
		}
	}
	if !found || best.Score < minWindowScore {
		return Window{}, false
	}
	return best, true
}

// scoreWindow scores transcript[start..end] against n sentence tokens, using
// sim(i, j) for the similarity of sentence token i and transcript token j.
func scoreWindow(n, start, end int, sim func(i, j int) float64) float64 {
	size := end - start + 1
	if n == 0 || size <= 0 {
		return 0
	}
	used := make([]bool, size)
	total := 0.0
	matched := 0
	for i := 0; i < n; i++ {
		bestSim := 0.0
		bestIdx := -1
		for k := range used {
			if used[k] {
				continue
			}
			if s := sim(i, start+k); s > bestSim {
				bestSim = s
				bestIdx = k
			}
		}
		if bestIdx >= 0 && bestSim > matchThreshold {
			used[bestIdx] = true
			total += bestSim
			matched++
		}
	}

	coverage := float64(matched) / float64(n)
	avgSim := total / float64(n)
	ratio := float64(size) / float64(n)
	penalty := 1.0
	if ratio < 0.5 || ratio > 2.0 {
		penalty = 0.8
	}
	return (coverage*0.5 + avgSim*0.5) * penalty
}

// similarityGrid memoizes sentence-by-transcript similarities for one search.
// Candidate windows overlap heavily, so each pair is scored at most once.
type similarityGrid struct {
	sentence   []string
	transcript []string
	offset     int
	cols       int
	vals       []float64
}

func newSimilarityGrid(sentence, transcript []string, from int) *similarityGrid {
	n := len(sentence)
	// Furthest reachable index: last start plus the longest window.
	last := min(from+n+4+2*n+1, len(transcript)-1)
	cols := max(last-from+1, 0)
	vals := make([]float64, n*cols)
	for i := range vals {
		vals[i] = -1
	}
	return &similarityGrid{sentence: sentence, transcript: transcript, offset: from, cols: cols, vals: vals}
}

func (g *similarityGrid) at(i, j int) float64 {
	k := i*g.cols + (j - g.offset)
	if v := g.vals[k]; v >= 0 {
		return v
	}
	v := textutil.CompareNormalized(g.sentence[i], g.transcript[j])
	g.vals[k] = v
	return v
}

func normalizeAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = textutil.NormalizeToken(t)
	}
	return out
}
