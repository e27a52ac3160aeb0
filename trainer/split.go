package trainer

import (
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// partition holds the rows of one stratified split, each in ascending order.
type partition struct {
	train []int
	test  []int
}

// stratifiedSplit shuffles the rows of each class with a PCG stream seeded by
// seed and sends round(n_c*fraction) of them, clamped to [1, n_c-1], to the
// test side. Every class must therefore have at least two rows, and there
// must be at least two classes.
func stratifiedSplit(y *mat.VecDense, fraction float64, seed int64) (partition, error) {
	if fraction <= 0 || fraction >= 1 {
		return partition{}, errors.NewValidationError("test_fraction", "must be in (0, 1)", fraction)
	}

	byClass := make(map[float64][]int)
	for i := 0; i < y.Len(); i++ {
		c := y.AtVec(i)
		byClass[c] = append(byClass[c], i)
	}
	if len(byClass) < 2 {
		return partition{}, errors.NewDataError("split",
			"target has a single class; stratified split needs at least two", nil)
	}

	classes := make([]float64, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	var p partition
	for _, c := range classes {
		rows := byClass[c]
		n := len(rows)
		if n < 2 {
			return partition{}, errors.NewDataError("split",
				"class "+strconv.FormatFloat(c, 'g', -1, 64)+" has a single row; stratified split needs at least two", nil)
		}
		rng.Shuffle(n, func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

		nTest := int(math.Round(float64(n) * fraction))
		nTest = max(1, min(nTest, n-1))
		p.test = append(p.test, rows[:nTest]...)
		p.train = append(p.train, rows[nTest:]...)
	}
	slices.Sort(p.train)
	slices.Sort(p.test)
	return p, nil
}

// takeRows copies the given rows of X and y.
func takeRows(X mat.Matrix, y *mat.VecDense, rows []int) (*mat.Dense, *mat.VecDense) {
	_, c := X.Dims()
	Xs := mat.NewDense(len(rows), c, nil)
	ys := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		for j := 0; j < c; j++ {
			Xs.Set(i, j, X.At(r, j))
		}
		ys.SetVec(i, y.AtVec(r))
	}
	return Xs, ys
}
