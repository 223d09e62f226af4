// Package parallel はインデックス範囲を CPU コア数に応じて分割し、並列に処理します。
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var maxWorkers atomic.Int32

// SetMaxWorkers はワーカー数の上限を設定する。0 以下なら runtime.NumCPU() を使う
func SetMaxWorkers(n int) {
	if n < 0 {
		n = 0
	}
	maxWorkers.Store(int32(n))
}

// Workers は items 個の処理に使うワーカー数を返す
func Workers(items int) int {
	n := int(maxWorkers.Load())
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > items {
		n = items
	}
	return n
}

// Parallelize は [0, items) を均等な範囲に分け、各範囲で fn(start, end) を並列に呼ぶ。
// すべての fn が戻るまでブロックする
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers := Workers(items)
	chunk := (items + workers - 1) / workers

	bounds := make([]int, 0, workers+1)
	for start := 0; start < items; start += chunk {
		bounds = append(bounds, start)
	}
	bounds = append(bounds, items)
	run(bounds, fn)
}

// ParallelizeWithThreshold は items が threshold 以下なら fn(0, items) を直接呼ぶ
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	Parallelize(items, fn)
}

// Triangular は行 i のコストが i+1 に比例する処理 (下三角行列の走査) を、
// 各範囲のコストがほぼ等しくなるように分割して並列に処理する
func Triangular(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		if items > 0 {
			fn(0, items)
		}
		return
	}
	workers := Workers(items)
	total := items * (items + 1) / 2
	target := (total + workers - 1) / workers

	bounds := []int{0}
	cost := 0
	for i := 0; i < items; i++ {
		cost += i + 1
		if cost >= target && i+1 < items {
			bounds = append(bounds, i+1)
			cost = 0
		}
	}
	bounds = append(bounds, items)
	run(bounds, fn)
}

// run は隣接する境界の組ごとに fn を呼ぶ
func run(bounds []int, fn func(start, end int)) {
	if len(bounds) == 2 {
		fn(bounds[0], bounds[1])
		return
	}
	var wg sync.WaitGroup
	for i := 0; i+1 < len(bounds); i++ {
		s, e := bounds[i], bounds[i+1]
		if s >= e {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(s, e)
		}()
	}
	wg.Wait()
}
