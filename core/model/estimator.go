package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う（n×1 のクラスラベル）
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Model は学習と予測ができる分類器です。
// パイプラインの学習器が扱うのはこのインターフェースのみです。
type Model interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier はクラス確率を出力できる分類器です。
// PredictProba は n×nClasses の行列を返し、列はクラス番号の昇順に並びます。
type ProbabilisticClassifier interface {
	Model
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェースです。
type ParameterGetter interface {
	GetParams() map[string]interface{}
}

// ParameterSetter はハイパーパラメータを変更できるモデルのインターフェースです。
type ParameterSetter interface {
	SetParams(params map[string]interface{}) error
}
