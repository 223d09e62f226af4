package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/catalogue"
	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/portable"
	"github.com/YuminosukeSato/learningmachine/learner"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	return map[string]Store{
		"memory": NewMemoryStore(0),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db")),
	}
}

func initStore(t *testing.T, st Store) {
	t.Helper()
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
}

func trainedRLS(t *testing.T) *learner.RLS {
	t.Helper()
	l := learner.NewRLS(2, 1, 1)
	for i := 0; i < 20; i++ {
		x := mat.NewVecDense(2, []float64{float64(i), float64(i % 3)})
		y := mat.NewVecDense(1, []float64{2*x.AtVec(0) - x.AtVec(1)})
		require.NoError(t, l.Feed(x, y))
	}
	require.NoError(t, l.Train())
	return l
}

func TestSaveGetListDelete(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			initStore(t, st)

			base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
			snaps := []Snapshot{
				{ID: "b", Kind: "learner", Name: "RLS", SchemaVersion: 1, Payload: []byte{1, 2}, CreatedAt: base},
				{ID: "a", Kind: "learner", Name: "LSSVM", SchemaVersion: 1, Payload: []byte{3}, CreatedAt: base.Add(time.Second)},
				{ID: "c", Kind: "transformer", Name: "Scaler", SchemaVersion: 1, Payload: []byte{4}, CreatedAt: base},
			}
			for _, s := range snaps {
				require.NoError(t, st.Save(ctx, s))
			}

			got, ok, err := st.Get(ctx, "a")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, snaps[1], got)

			_, ok, err = st.Get(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			learners, err := st.List(ctx, "learner")
			require.NoError(t, err)
			require.Len(t, learners, 2)
			assert.Equal(t, "b", learners[0].ID, "ordered by creation time")
			assert.Equal(t, "a", learners[1].ID)

			all, err := st.List(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			require.NoError(t, st.Delete(ctx, "b"))
			_, ok, err = st.Get(ctx, "b")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			initStore(t, st)
			now := time.Now().UTC().Truncate(time.Microsecond)
			require.NoError(t, st.Save(ctx, Snapshot{ID: "x", Kind: "learner", Name: "RLS", Payload: []byte{1}, CreatedAt: now}))
			require.NoError(t, st.Save(ctx, Snapshot{ID: "x", Kind: "learner", Name: "Dummy", Payload: []byte{2}, CreatedAt: now}))

			got, ok, err := st.Get(ctx, "x")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "Dummy", got.Name)
			assert.Equal(t, []byte{2}, got.Payload)
		})
	}
}

func TestNotInitialized(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := st.Save(ctx, Snapshot{ID: "x"})
			assert.True(t, errors.Is(err, ErrNotInitialized), "err = %v", err)
			_, _, err = st.Get(ctx, "x")
			assert.True(t, errors.Is(err, ErrNotInitialized), "err = %v", err)
			assert.NoError(t, st.Close())
		})
	}
}

func TestPutFetchRoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := catalogue.Learners()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			initStore(t, st)
			src := portable.Wrap[model.Learner](reg, trainedRLS(t))

			id, err := Put(ctx, st, "learner", src)
			require.NoError(t, err)
			assert.NotEmpty(t, id)

			snaps, err := st.List(ctx, "learner")
			require.NoError(t, err)
			require.Len(t, snaps, 1)
			assert.Equal(t, "RLS", snaps[0].Name)
			assert.Equal(t, model.SchemaVersion, snaps[0].SchemaVersion)

			dst, err := Fetch(ctx, st, reg, id)
			require.NoError(t, err)
			got, err := dst.Wrapped()
			require.NoError(t, err)
			want, _ := src.Wrapped()

			x := mat.NewVecDense(2, []float64{4, 1})
			pw, err := want.Predict(x)
			require.NoError(t, err)
			pg, err := got.Predict(x)
			require.NoError(t, err)
			assert.Equal(t, pw.Mean().RawVector().Data, pg.Mean().RawVector().Data)
		})
	}
}

func TestPutEmptyPortable(t *testing.T) {
	st := NewMemoryStore(0)
	initStore(t, st)
	_, err := Put(context.Background(), st, "learner", portable.New(catalogue.Learners()))
	assert.True(t, errors.Is(err, errors.ErrNoWrapped), "err = %v", err)

	all, err := st.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFetchErrors(t *testing.T) {
	ctx := context.Background()
	reg := catalogue.Learners()
	st := NewMemoryStore(0)
	initStore(t, st)

	_, err := Fetch(ctx, st, reg, "nope")
	assert.True(t, errors.Is(err, ErrNotFound), "err = %v", err)

	require.NoError(t, st.Save(ctx, Snapshot{ID: "junk", Kind: "learner", Payload: []byte("not a frame")}))
	_, err = Fetch(ctx, st, reg, "junk")
	assert.True(t, errors.Is(err, errors.ErrMalformedFrame), "err = %v", err)
}

func TestMemoryStoreExpiration(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(20 * time.Millisecond)
	initStore(t, st)
	require.NoError(t, st.Save(ctx, Snapshot{ID: "x", Payload: []byte{1}}))

	assert.Eventually(t, func() bool {
		_, ok, err := st.Get(ctx, "x")
		return err == nil && !ok
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	initStore(t, st)

	payload := []byte{1, 2, 3}
	require.NoError(t, st.Save(ctx, Snapshot{ID: "x", Payload: payload}))
	payload[0] = 9

	got, _, err := st.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Payload)
}

func TestSQLiteStoreRequiresPath(t *testing.T) {
	err := NewSQLiteStore("").Init(context.Background())
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr), "err = %v", err)
}
