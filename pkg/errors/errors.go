// Package errors はパイプライン全体のエラーハンドリングと警告システムを提供します。
// 各ステージ（生成・前処理・拡張・学習）の失敗を型付きエラーとして表現し、
// cockroachdb/errors によるスタックトレースと zerolog 用の構造化情報を付与します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("synthpipe-warning: %v\n", w)
	}
)

// SetWarningHandler はパイプライン全体の警告ハンドラを設定し、以前のハンドラを返します。
//
// 例:
//
//	prev := errors.SetWarningHandler(func(w error) {
//	    logger.Warn(w.Error())
//	})
//	defer errors.SetWarningHandler(prev)
func SetWarningHandler(handler func(w error)) func(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	prev := warningHandler
	warningHandler = handler
	return prev
}

// Warn は警告を発生させます。処理は継続されます。
func Warn(w error) {
	warningMutex.Lock()
	h := warningHandler
	warningMutex.Unlock()

	if h != nil {
		h(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// ConvergenceWarning は最適化アルゴリズムが収束しなかった場合に発生する警告です。
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

func (w *ConvergenceWarning) Error() string {
	if w.Message != "" {
		return fmt.Sprintf("%s failed to converge after %d iterations: %s", w.Algorithm, w.Iterations, w.Message)
	}
	return fmt.Sprintf("%s failed to converge after %d iterations. Consider increasing max_iter or adjusting parameters.", w.Algorithm, w.Iterations)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *ConvergenceWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("algorithm", w.Algorithm).
		Int("iterations", w.Iterations).
		Str("message", w.Message).
		Str("type", "ConvergenceWarning")
}

// NewConvergenceWarning は新しいConvergenceWarningを作成します。
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

// UndefinedMetricWarning は評価指標が計算できない場合に発生する警告です。
// 例えば、適合率(precision)を計算する際に、陽性クラスの予測が一つもなかった場合など。
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
	Result    float64 // この条件で返される値
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("'%s' is ill-defined and being set to %f due to %s.", w.Metric, w.Result, w.Condition)
}

// NewUndefinedMetricWarning は新しいUndefinedMetricWarningを作成します。
func NewUndefinedMetricWarning(metric, condition string, result float64) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition, Result: result}
}

// DegradedMetricWarning は確率を出力できないモデルに対し、
// 予測ラベルを代替スコアとしてROC AUCを計算したことを示す警告です。
type DegradedMetricWarning struct {
	Model  string
	Metric string
}

func (w *DegradedMetricWarning) Error() string {
	return fmt.Sprintf("%s does not expose class probabilities; %s computed from predicted labels", w.Model, w.Metric)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *DegradedMetricWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model", w.Model).
		Str("metric", w.Metric).
		Str("type", "DegradedMetricWarning")
}

// UnknownMethodWarning は未知の拡張手法が指定され、既定の手法で代替したことを示す警告です。
type UnknownMethodWarning struct {
	Method   string
	Fallback string
}

func (w *UnknownMethodWarning) Error() string {
	return fmt.Sprintf("unknown augmentation method %q, falling back to %q", w.Method, w.Fallback)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *UnknownMethodWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("method", w.Method).
		Str("fallback", w.Fallback).
		Str("type", "UnknownMethodWarning")
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// NotFittedError はモデルが未学習の状態で `Predict` や `Transform` を呼び出した場合のエラーです。
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("synthpipe: %s: this model is not fitted yet. Call Fit() before using %s()", e.ModelName, e.Method)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("model_name", e.ModelName).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError は新しいNotFittedErrorを作成し、スタックトレースを付与します。
func NewNotFittedError(modelName, method string) error {
	err := &NotFittedError{ModelName: modelName, Method: method}
	return errors.WithStack(err)
}

// DimensionError は入力データの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("synthpipe: %s: dimension mismatch on axis %d (%s). Expected %d, got %d", e.Op, e.Axis, e.axisName(), e.Expected, e.Got)
}

func (e *DimensionError) axisName() string {
	if e.Axis == 0 {
		return "rows"
	}
	return "features"
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", e.axisName()).
		Str("type", "DimensionError")
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は入力パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("synthpipe: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("synthpipe: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は機械学習モデルに関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synthpipe: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("synthpipe: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// ===========================================================================
//
//	パイプライン固有のエラー型
//
// ===========================================================================

// GenerationError はデータ生成のパラメータが不正な場合のエラーです。
// 問題の値とその動的な型名を保持します。
type GenerationError struct {
	Param string
	Value interface{}
	Type  string
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("synthpipe: generate: %s must be a positive int, got %v (type %s)", e.Param, e.Value, e.Type)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *GenerationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param", e.Param).
		Interface("value", e.Value).
		Str("value_type", e.Type).
		Str("type", "GenerationError")
}

// NewGenerationError は新しいGenerationErrorを作成し、スタックトレースを付与します。
func NewGenerationError(param string, value interface{}) error {
	err := &GenerationError{Param: param, Value: value, Type: fmt.Sprintf("%T", value)}
	return errors.WithStack(err)
}

// PathError は出力ファイル名が不正な場合のエラーです。
type PathError struct {
	Filename interface{}
	Reason   string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("synthpipe: save: invalid filename %v: %s", e.Filename, e.Reason)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *PathError) MarshalZerologObject(event *zerolog.Event) {
	event.Interface("filename", e.Filename).
		Str("reason", e.Reason).
		Str("type", "PathError")
}

// NewPathError は新しいPathErrorを作成し、スタックトレースを付与します。
func NewPathError(filename interface{}, reason string) error {
	err := &PathError{Filename: filename, Reason: reason}
	return errors.WithStack(err)
}

// DataError は入力データの欠落や不正（目的変数の列がない、読み込めない等）を表すエラーです。
type DataError struct {
	Op     string
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("synthpipe: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("synthpipe: %s: %s", e.Op, e.Reason)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("reason", e.Reason).
		Str("type", "DataError")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewDataError は新しいDataErrorを作成し、スタックトレースを付与します。
func NewDataError(op, reason string, cause error) error {
	err := &DataError{Op: op, Reason: reason, Err: cause}
	return errors.WithStack(err)
}

// UnknownCategoryError は変換時に学習時に存在しなかったカテゴリが現れた場合のエラーです。
type UnknownCategoryError struct {
	Column string
	Label  string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("synthpipe: encode: unknown category %q in column '%s'", e.Label, e.Column)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownCategoryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("column", e.Column).
		Str("label", e.Label).
		Str("type", "UnknownCategoryError")
}

// NewUnknownCategoryError は新しいUnknownCategoryErrorを作成し、スタックトレースを付与します。
func NewUnknownCategoryError(column, label string) error {
	err := &UnknownCategoryError{Column: column, Label: label}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrNotImplemented は機能が未実装の場合のエラーです。
	ErrNotImplemented = New("not implemented")
)
