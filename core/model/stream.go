package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Sample は入出力の組
type Sample struct {
	Input  mat.Vector
	Output mat.Vector
}

// StreamResult は PredictStream の一件分の結果
type StreamResult struct {
	Prediction Prediction
	Err        error
}

// FeedStream はチャネルが閉じるかコンテキストがキャンセルされるまでサンプルを Feed する。
// 学習器への操作はこの関数を呼んだゴルーチンだけで行う。Feed に成功した件数を返す
func FeedStream(ctx context.Context, l Learner, samples <-chan Sample) (int, error) {
	fed := 0
	for {
		select {
		case <-ctx.Done():
			return fed, ctx.Err()
		case s, ok := <-samples:
			if !ok {
				return fed, nil
			}
			if err := l.Feed(s.Input, s.Output); err != nil {
				return fed, err
			}
			fed++
		}
	}
}

// PredictStream は入力ごとに予測を返す。入力チャネルが閉じると出力チャネルも閉じる。
// 学習器は専用のゴルーチンから使われるので、呼び出し側は結果を読み終えるまで l に触れないこと
func PredictStream(ctx context.Context, l Learner, inputs <-chan mat.Vector) <-chan StreamResult {
	out := make(chan StreamResult)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-inputs:
				if !ok {
					return
				}
				p, err := l.Predict(in)
				select {
				case out <- StreamResult{Prediction: p, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
