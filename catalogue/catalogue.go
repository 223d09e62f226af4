// Package catalogue は既知の学習器・変換器・スケーラをレジストリに登録します。
//
// 登録は明示的な呼び出しで行い、パッケージの init には頼りません。
package catalogue

import (
	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/registry"
	"github.com/YuminosukeSato/learningmachine/learner"
	"github.com/YuminosukeSato/learningmachine/preprocessing"
	"github.com/YuminosukeSato/learningmachine/transform"
)

// Learners は Dummy, RLS, LinearGPR, LSSVM, Recorder を登録したレジストリを返す
func Learners() *registry.Registry[model.Learner] {
	reg := registry.New[model.Learner]("learner")
	reg.MustRegister(
		learner.NewDummy(1, 1),
		learner.NewRLS(1, 1, 1),
		learner.NewLinearGPR(1, 1, 1),
		learner.NewLSSVM(1, 1, 1),
		learner.NewRecorder(""),
	)
	return reg
}

// Scalers は null, linear, standardizer, normalizer, fixedrange を登録したレジストリを返す
func Scalers() *registry.Registry[model.Scaler] {
	reg := registry.New[model.Scaler]("scaler")
	reg.MustRegister(
		preprocessing.NewNullScaler(),
		preprocessing.NewLinearScaler(0, 1),
		preprocessing.NewStandardizer(),
		preprocessing.NewNormalizer(),
		preprocessing.NewFixedRangeScaler(-1, 1, -1, 1),
	)
	return reg
}

// Transformers は Scaler, RandomFeature, SparseSpectrumFeature を登録したレジストリを返す。
// Scaler の各スロットは scalers から生成される
func Transformers(scalers *registry.Registry[model.Scaler]) *registry.Registry[model.Transformer] {
	reg := registry.New[model.Transformer]("transformer")
	reg.MustRegister(
		transform.NewScaleTransformer(scalers, 1),
		transform.NewRandomFeature(1, 1, 1, 0),
		transform.NewSparseSpectrumFeature(1, 2, 1, 0),
	)
	return reg
}

// Catalogue は三つのレジストリをまとめたもの
type Catalogue struct {
	Learners     *registry.Registry[model.Learner]
	Scalers      *registry.Registry[model.Scaler]
	Transformers *registry.Registry[model.Transformer]
}

// Default は全ての既知のバリアントを登録した Catalogue を返す
func Default() *Catalogue {
	scalers := Scalers()
	return &Catalogue{
		Learners:     Learners(),
		Scalers:      scalers,
		Transformers: Transformers(scalers),
	}
}
