package tree

import (
	"math"
	"math/rand/v2"
	"sort"
)

// builder grows a tree depth first into dt.nodes.
type builder struct {
	dt          *DecisionTreeClassifier
	cols        [][]float64 // column-major copy of X
	labels      []int       // class index per sample
	importances []float64
	rng         *rand.Rand
}

type split struct {
	feature   int
	threshold float64
	pos       int // samples [0, pos) of the sorted order go left
	impurity  float64
	order     []int
}

// build adds the subtree for idx and returns its node index.
func (b *builder) build(idx []int, depth int) int {
	dt := b.dt
	counts := b.counts(idx)
	impurity := b.impurity(counts, len(idx))

	id := len(dt.nodes)
	dt.nodes = append(dt.nodes, Node{
		Feature:  -1,
		Left:     -1,
		Right:    -1,
		Value:    proba(counts, len(idx)),
		Impurity: impurity,
		NSamples: len(idx),
	})

	if !b.splittable(len(idx), depth, impurity) {
		return id
	}
	best, ok := b.bestSplit(idx)
	if !ok {
		return id
	}

	left := append([]int(nil), best.order[:best.pos]...)
	right := append([]int(nil), best.order[best.pos:]...)

	n := float64(len(idx))
	nl, nr := float64(len(left)), float64(len(right))
	lImp := b.impurity(b.counts(left), len(left))
	rImp := b.impurity(b.counts(right), len(right))
	b.importances[best.feature] += n*impurity - nl*lImp - nr*rImp

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)

	node := &dt.nodes[id]
	node.Feature = best.feature
	node.Threshold = best.threshold
	node.Left = l
	node.Right = r
	return id
}

func (b *builder) splittable(n, depth int, impurity float64) bool {
	dt := b.dt
	if impurity <= 0 {
		return false
	}
	if dt.maxDepth > 0 && depth >= dt.maxDepth {
		return false
	}
	if n < dt.minSamplesSplit || n < 2*dt.minSamplesLeaf {
		return false
	}
	return true
}

// candidates returns the features examined at one node.
func (b *builder) candidates() []int {
	p := len(b.cols)
	k := b.dt.maxFeatures
	if k <= 0 || k >= p {
		all := make([]int, p)
		for j := range all {
			all[j] = j
		}
		return all
	}
	return b.rng.Perm(p)[:k]
}

// bestSplit finds the threshold with the lowest weighted child impurity.
// Ties keep the first split found.
func (b *builder) bestSplit(idx []int) (split, bool) {
	n := len(idx)
	nClasses := b.dt.nClasses_
	minLeaf := b.dt.minSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}

	best := split{impurity: math.Inf(1)}
	found := false
	leftCounts := make([]int, nClasses)
	rightCounts := make([]int, nClasses)

	for _, f := range b.candidates() {
		col := b.cols[f]
		order := append([]int(nil), idx...)
		sort.SliceStable(order, func(a, c int) bool {
			return col[order[a]] < col[order[c]]
		})

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = 0
		}
		for _, i := range order {
			rightCounts[b.labels[i]]++
		}

		for pos := 1; pos < n; pos++ {
			moved := order[pos-1]
			leftCounts[b.labels[moved]]++
			rightCounts[b.labels[moved]]--

			lo, hi := col[order[pos-1]], col[order[pos]]
			if lo == hi {
				continue
			}
			if pos < minLeaf || n-pos < minLeaf {
				continue
			}
			w := (float64(pos)*b.impurity(leftCounts, pos) +
				float64(n-pos)*b.impurity(rightCounts, n-pos)) / float64(n)
			if w < best.impurity {
				best = split{
					feature:   f,
					threshold: lo + (hi-lo)/2,
					pos:       pos,
					impurity:  w,
					order:     order,
				}
				found = true
			}
		}
	}
	return best, found
}

func (b *builder) counts(idx []int) []int {
	c := make([]int, b.dt.nClasses_)
	for _, i := range idx {
		c[b.labels[i]]++
	}
	return c
}

func (b *builder) impurity(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	if b.dt.criterion == "entropy" {
		return entropy(counts, n)
	}
	return gini(counts, n)
}

func gini(counts []int, n int) float64 {
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		g -= p * p
	}
	return g
}

func entropy(counts []int, n int) float64 {
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

func proba(counts []int, n int) []float64 {
	p := make([]float64, len(counts))
	for k, c := range counts {
		p[k] = float64(c) / float64(n)
	}
	return p
}
