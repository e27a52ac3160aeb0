// Package metrics は分類モデルの評価指標を提供する。
// 二値分類の指標では陽性クラスを 1、陰性クラスを 0 とする。
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// logLossEpsilon は log(0) を避けるための確率のクリップ幅
const logLossEpsilon = 1e-15

// checkPair は二つのベクトルが空でなく同じ長さであることを検証する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary はラベルが {0, 1} のみであることを検証する
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be binary {0, 1}")
		}
	}
	return nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - 正解率）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は二値分類の混同行列の要素
type ConfusionMatrix struct {
	TP, FP, TN, FN int
}

// BinaryConfusion は二値ラベルから混同行列を作る
func BinaryConfusion(yTrue, yPred *mat.VecDense) (ConfusionMatrix, error) {
	n, err := checkPair("BinaryConfusion", yTrue, yPred)
	if err != nil {
		return ConfusionMatrix{}, err
	}
	if err := checkBinary("BinaryConfusion", yTrue); err != nil {
		return ConfusionMatrix{}, err
	}
	if err := checkBinary("BinaryConfusion", yPred); err != nil {
		return ConfusionMatrix{}, err
	}

	var cm ConfusionMatrix
	for i := 0; i < n; i++ {
		switch t, p := yTrue.AtVec(i), yPred.AtVec(i); {
		case t == 1 && p == 1:
			cm.TP++
		case t == 0 && p == 1:
			cm.FP++
		case t == 0 && p == 0:
			cm.TN++
		default:
			cm.FN++
		}
	}
	return cm, nil
}

// Precision は適合率 TP / (TP + FP) を計算する。
// 陽性予測が一つもない場合は 0 を返す。
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Precision(), nil
}

// Recall は再現率 TP / (TP + FN) を計算する。
// 陽性サンプルが一つもない場合は 0 を返す。
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.Recall(), nil
}

// F1 は適合率と再現率の調和平均を計算する。どちらも 0 の場合は 0 を返す。
func F1(yTrue, yPred *mat.VecDense) (float64, error) {
	cm, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return cm.F1(), nil
}

// Precision は適合率を返す。陽性予測がなければ 0。
func (cm ConfusionMatrix) Precision() float64 {
	return errors.SafeDivide(float64(cm.TP), float64(cm.TP+cm.FP))
}

// Recall は再現率を返す。陽性サンプルがなければ 0。
func (cm ConfusionMatrix) Recall() float64 {
	return errors.SafeDivide(float64(cm.TP), float64(cm.TP+cm.FN))
}

// F1 は適合率と再現率の調和平均を返す。
func (cm ConfusionMatrix) F1() float64 {
	p, r := cm.Precision(), cm.Recall()
	return errors.SafeDivide(2*p*r, p+r)
}

// AUC はROC曲線下面積を計算する。
//
// Mann-Whitney の U 統計量として順位から求め、同じスコアには平均順位を与える。
// 正例または負例しか存在しない場合は定義できないため 0.5 を返す。
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yPred.AtVec(idx[a]) < yPred.AtVec(idx[b])
	})

	// 同順位は平均順位（1始まり）
	var rankSumPos float64
	nPos := 0
	for i := 0; i < n; {
		j := i
		for j+1 < n && yPred.AtVec(idx[j+1]) == yPred.AtVec(idx[i]) {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			}
		}
		i = j + 1
	}

	nNeg := n - nPos
	if nPos == 0 || nNeg == 0 {
		return 0.5, nil
	}

	u := rankSumPos - float64(nPos*(nPos+1))/2
	return u / float64(nPos*nNeg), nil
}

// AUCMatrix は行列形式の入力の先頭列に対してAUCを計算する
func AUCMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError("AUCMatrix", "nil matrix")
	}
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()
	if rTrue == 0 || cTrue == 0 || cPred == 0 {
		return 0, errors.NewValueError("AUCMatrix", "empty matrix")
	}
	if rTrue != rPred {
		return 0, errors.NewDimensionError("AUCMatrix", rTrue, rPred, 0)
	}

	return AUC(firstColumn(yTrue), firstColumn(yPred))
}

// BinaryLogLoss は二値交差エントロピーを計算する。
// 予測確率は [eps, 1-eps] にクリップされる。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), logLossEpsilon, 1-logLossEpsilon)
		y := yTrue.AtVec(i)
		sum -= y*math.Log(p) + (1-y)*math.Log(1-p)
	}
	return sum / float64(n), nil
}

// ColumnVector は n×1 行列（または任意の行列の指定列）をベクトルとして取り出す
func ColumnVector(m mat.Matrix, j int) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, j))
	}
	return v
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	return ColumnVector(m, 0)
}
