// Package learner は固定次元の学習器を提供します。
//
//   - LSSVM: RBF カーネルの最小二乗 SVM (leave-one-out 誤差付き)
//   - RLS: 逐次最小二乗法
//   - LinearGPR: 線形ガウス過程回帰 (予測分散付き)
//   - Dummy: 何も学習しない学習器
//   - Recorder: サンプルをファイルに記録する学習器
//
// すべて model.Learner を満たし、catalogue.Learners で登録されます。
package learner

import "github.com/YuminosukeSato/learningmachine/core/model"

var (
	_ model.Learner = (*LSSVM)(nil)
	_ model.Learner = (*RLS)(nil)
	_ model.Learner = (*LinearGPR)(nil)
	_ model.Learner = (*Dummy)(nil)
	_ model.Learner = (*Recorder)(nil)
)
