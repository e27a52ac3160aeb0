package metrics

import "gonum.org/v1/gonum/mat"

// BinaryReport は二値分類モデル一つ分の評価結果
type BinaryReport struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	ROCAUC    float64
}

// EvaluateBinary は予測ラベルとスコアから全指標を計算する。
// scores は陽性クラスの確率、またはそれに代わる順位付け可能な値。
// 分母が 0 になる指標は 0 とする。
func EvaluateBinary(yTrue, yPred, scores *mat.VecDense) (BinaryReport, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return BinaryReport{}, err
	}
	cm, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return BinaryReport{}, err
	}
	auc, err := AUC(yTrue, scores)
	if err != nil {
		return BinaryReport{}, err
	}
	return BinaryReport{
		Accuracy:  acc,
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		F1:        cm.F1(),
		ROCAUC:    auc,
	}, nil
}
