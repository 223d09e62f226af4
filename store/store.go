// Package store はワイヤーフレームのスナップショットを保存します。
//
// スナップショットは Portable.Write が出力したフレームそのものを保持するので、
// Fetch は登録名から正しい具象型を復元できます。
package store

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/portable"
	"github.com/YuminosukeSato/learningmachine/core/registry"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
)

const tracerName = "github.com/YuminosukeSato/learningmachine/store"

var (
	// ErrNotFound は ID のスナップショットが存在しない場合のエラーです。
	ErrNotFound = errors.New("snapshot not found")

	// ErrNotInitialized は Init 前に操作した場合のエラーです。
	ErrNotInitialized = errors.New("store is not initialized")
)

// Snapshot は保存された一つのフレーム
type Snapshot struct {
	ID            string
	Kind          string // learner, transformer, ...
	Name          string // 登録名
	SchemaVersion int
	Payload       []byte
	CreatedAt     time.Time
}

// Store はスナップショットの永続化先
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, snap Snapshot) error
	Get(ctx context.Context, id string) (Snapshot, bool, error)

	// List は kind のスナップショットを作成順に返す。kind が空なら全件
	List(ctx context.Context, kind string) ([]Snapshot, error)

	Delete(ctx context.Context, id string) error
	Close() error
}

// Put は p のフレームを新しい ID で st に保存し、その ID を返す。
// p が空なら ErrNoWrapped
func Put[T portable.Wrappable[T]](ctx context.Context, st Store, kind string, p *portable.Portable[T]) (id string, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store.Put", trace.WithAttributes(attribute.String("snapshot.kind", kind)))
	defer func() { endSpan(span, err) }()

	w, err := p.Wrapped()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if !p.Write(&buf) {
		return "", errors.Newf("store: encode %s frame", w.Name())
	}

	snap := Snapshot{
		ID:            uuid.NewString(),
		Kind:          kind,
		Name:          w.Name(),
		SchemaVersion: model.SchemaVersion,
		Payload:       buf.Bytes(),
		CreatedAt:     time.Now().UTC(),
	}
	span.SetAttributes(
		attribute.String("snapshot.id", snap.ID),
		attribute.String("snapshot.name", snap.Name),
		attribute.Int("snapshot.bytes", len(snap.Payload)),
	)
	if err := st.Save(ctx, snap); err != nil {
		return "", errors.Wrapf(err, "store: save %s", snap.ID)
	}
	logger().Debug("snapshot saved", log.SnapshotIDKey, snap.ID, log.ModelNameKey, snap.Name)
	return snap.ID, nil
}

// Fetch は id のフレームを読み、reg で復元した Portable を返す
func Fetch[T portable.Wrappable[T]](ctx context.Context, st Store, reg *registry.Registry[T], id string) (p *portable.Portable[T], err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "store.Fetch", trace.WithAttributes(attribute.String("snapshot.id", id)))
	defer func() { endSpan(span, err) }()

	snap, ok, err := st.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "store: fetch %s", id)
	}
	p = portable.New(reg)
	if !p.Read(bytes.NewReader(snap.Payload)) {
		return nil, errors.Mark(errors.Newf("store: snapshot %s (%s) is not a readable frame", id, snap.Name), errors.ErrMalformedFrame)
	}
	return p, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func logger() log.Logger { return log.GetLoggerWithName("store") }
