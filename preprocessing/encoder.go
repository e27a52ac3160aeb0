package preprocessing

import (
	"sort"

	"github.com/YuminosukeSato/synthpipe/pkg/errors"
)

// LabelEncoder はカテゴリ文字列を 0..n-1 の整数に対応付ける。
// 番号はラベルの辞書順で振られ、一度学習した対応は変わらない。
type LabelEncoder struct {
	// Column はエラーメッセージに使う列名
	Column string

	// ClassList は学習したラベル（辞書順）
	ClassList []string

	index map[string]int
}

// NewLabelEncoder は列名付きのLabelEncoderを作成する
func NewLabelEncoder(column string) *LabelEncoder {
	return &LabelEncoder{Column: column}
}

// Fit はラベルの一覧を学習する。空文字（欠損）は無視する。
func (e *LabelEncoder) Fit(labels []string) error {
	seen := make(map[string]bool)
	classes := make([]string, 0)
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		classes = append(classes, l)
	}
	if len(classes) == 0 {
		return errors.NewDataError("encode", "column '"+e.Column+"' has no labels to fit", errors.ErrEmptyData)
	}
	sort.Strings(classes)
	e.ClassList = classes
	e.index = nil
	return nil
}

// IsFitted は Fit 済みかどうかを返す
func (e *LabelEncoder) IsFitted() bool {
	return len(e.ClassList) > 0
}

// Transform はラベルを整数に変換する。未学習のラベルは UnknownCategoryError。
func (e *LabelEncoder) Transform(labels []string) ([]float64, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "Transform")
	}
	if e.index == nil {
		e.index = make(map[string]int, len(e.ClassList))
		for i, c := range e.ClassList {
			e.index[c] = i
		}
	}

	out := make([]float64, len(labels))
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewUnknownCategoryError(e.Column, l)
		}
		out[i] = float64(code)
	}
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (e *LabelEncoder) FitTransform(labels []string) ([]float64, error) {
	if err := e.Fit(labels); err != nil {
		return nil, err
	}
	return e.Transform(labels)
}

// InverseTransform は整数をラベルに戻す
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	if !e.IsFitted() {
		return nil, errors.NewNotFittedError("LabelEncoder", "InverseTransform")
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		k := int(c)
		if float64(k) != c || k < 0 || k >= len(e.ClassList) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", "code out of range")
		}
		out[i] = e.ClassList[k]
	}
	return out, nil
}

// Classes は学習したラベルのコピーを返す
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.ClassList...)
}
