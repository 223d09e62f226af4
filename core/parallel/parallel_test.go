package parallel

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// cover は fn が受け取った範囲を記録し、各インデックスの出現回数を返す
func cover(items int, split func(int, func(int, int))) []int {
	seen := make([]int, items)
	var mu sync.Mutex
	split(items, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		for i := start; i < end; i++ {
			seen[i]++
		}
	})
	return seen
}

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{1, 2, 7, 100, 1001} {
		seen := cover(n, Parallelize)
		for i, c := range seen {
			assert.Equalf(t, 1, c, "n=%d index %d", n, i)
		}
	}
}

func TestZeroItems(t *testing.T) {
	called := false
	fn := func(int, int) { called = true }
	Parallelize(0, fn)
	ParallelizeWithThreshold(0, 10, fn)
	Triangular(0, 0, fn)
	assert.False(t, called)
}

func TestThresholdRunsSequentially(t *testing.T) {
	var calls [][2]int
	ParallelizeWithThreshold(5, 10, func(s, e int) { calls = append(calls, [2]int{s, e}) })
	assert.Equal(t, [][2]int{{0, 5}}, calls)

	calls = nil
	Triangular(5, 10, func(s, e int) { calls = append(calls, [2]int{s, e}) })
	assert.Equal(t, [][2]int{{0, 5}}, calls)
}

func TestSetMaxWorkers(t *testing.T) {
	defer SetMaxWorkers(0)

	SetMaxWorkers(1)
	assert.Equal(t, 1, Workers(100))

	var calls int
	Parallelize(100, func(s, e int) {
		calls++
		assert.Equal(t, 0, s)
		assert.Equal(t, 100, e)
	})
	assert.Equal(t, 1, calls)

	SetMaxWorkers(8)
	assert.Equal(t, 3, Workers(3))
}

func TestTriangularBalancesCost(t *testing.T) {
	defer SetMaxWorkers(0)
	SetMaxWorkers(4)

	var mu sync.Mutex
	var ranges [][2]int
	Triangular(1000, 0, func(s, e int) {
		mu.Lock()
		ranges = append(ranges, [2]int{s, e})
		mu.Unlock()
	})
	assert.LessOrEqual(t, len(ranges), 4)
	// 最初の範囲は行数が多く、最後の範囲は少ない
	first, last := 0, 0
	for _, r := range ranges {
		if r[0] == 0 {
			first = r[1] - r[0]
		}
		if r[1] == 1000 {
			last = r[1] - r[0]
		}
	}
	assert.Greater(t, first, last)
}

func TestTriangularCoverage(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 500).Draw(t, "n")
		seen := cover(n, func(items int, fn func(int, int)) { Triangular(items, 0, fn) })
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("index %d covered %d times", i, c)
			}
		}
	})
}
