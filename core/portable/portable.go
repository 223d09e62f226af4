// Package portable は能力インターフェースの実装を一つ所有し、
// バイナリフレームとテキストファイルへの変換を担うラッパーを提供します。
//
// バイナリフレーム:
//
//	TagList, 2, String(登録名), ペイロード
//
// テキストファイル: 1行目に登録名、残りが MarshalText の出力です。
package portable

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/registry"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// FrameElements はフレームヘッダが宣言する要素数
const FrameElements = 2

// Wrappable は Portable が包める型の制約
type Wrappable[T any] interface {
	registry.Prototype[T]
	model.Codec
}

// Portable はゼロ個または一個のインスタンスを所有する
type Portable[T Wrappable[T]] struct {
	reg     *registry.Registry[T]
	wrapped T
	has     bool
	logger  log.Logger
}

// New は空の Portable を返す。名前からの生成には reg を使う
func New[T Wrappable[T]](reg *registry.Registry[T]) *Portable[T] {
	return &Portable[T]{
		reg:    reg,
		logger: log.GetLoggerWithName("core.portable").With("registry", reg.Kind()),
	}
}

// NewNamed は reg から name を生成して包んだ Portable を返す
func NewNamed[T Wrappable[T]](reg *registry.Registry[T], name string) (*Portable[T], error) {
	p := New(reg)
	if err := p.SetWrappedByName(name); err != nil {
		return nil, err
	}
	return p, nil
}

// Wrap は w の所有権を受け取って包んだ Portable を返す
func Wrap[T Wrappable[T]](reg *registry.Registry[T], w T) *Portable[T] {
	p := New(reg)
	p.SetWrapped(w)
	return p
}

// Registry は生成に使うレジストリを返す
func (p *Portable[T]) Registry() *registry.Registry[T] { return p.reg }

// HasWrapped はインスタンスを持っているかを返す
func (p *Portable[T]) HasWrapped() bool { return p.has }

// Wrapped は包んでいるインスタンスを返す。空なら ErrNoWrapped
func (p *Portable[T]) Wrapped() (T, error) {
	if !p.has {
		var zero T
		return zero, errors.WithStack(errors.ErrNoWrapped)
	}
	return p.wrapped, nil
}

// SetWrapped は w を包み、それまでのインスタンスを返す。
// 返り値を捨てれば前のインスタンスは解放される
func (p *Portable[T]) SetWrapped(w T) (prev T) {
	prev = p.wrapped
	if any(w) == nil {
		p.Clear()
		return prev
	}
	p.wrapped = w
	p.has = true
	return prev
}

// SetWrappedByName はレジストリから name を生成して包む
func (p *Portable[T]) SetWrappedByName(name string) error {
	w, err := p.reg.Create(name)
	if err != nil {
		return err
	}
	p.SetWrapped(w)
	return nil
}

// Clear は包んでいるインスタンスを手放す
func (p *Portable[T]) Clear() {
	var zero T
	p.wrapped = zero
	p.has = false
}

// Clone は包んでいるインスタンスを深くコピーした Portable を返す
func (p *Portable[T]) Clone() *Portable[T] {
	c := New(p.reg)
	c.CopyFrom(p)
	return c
}

// CopyFrom は other のインスタンスの複製で置き換える
func (p *Portable[T]) CopyFrom(other *Portable[T]) {
	if other == p {
		return
	}
	p.reg = other.reg
	if !other.has {
		p.Clear()
		return
	}
	p.SetWrapped(other.wrapped.Clone())
}

// Write はフレームを w に書く。空のときは何も書かずに false を返す。
// ペイロードはバッファに組み立ててから一度に書くので、途中までのフレームは出力されない
func (p *Portable[T]) Write(w io.Writer) bool {
	if !p.has || w == nil {
		p.logger.Debug("frame not written", log.FrameKey, "write", log.ReasonKey, "no_wrapped")
		return false
	}
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	enc.Header(FrameElements)
	enc.String(p.wrapped.Name())
	if err := p.wrapped.EncodeWire(enc); err != nil {
		p.logger.Error("payload encoding failed", err, log.FrameKey, "write", log.ModelNameKey, p.wrapped.Name())
		return false
	}
	if err := enc.Err(); err != nil {
		p.logger.Error("payload encoding failed", err, log.FrameKey, "write", log.ModelNameKey, p.wrapped.Name())
		return false
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		p.logger.Error("frame write failed", err, log.FrameKey, "write")
		return false
	}
	return true
}

// Read は r から一つのフレームを読み、登録名から生成したインスタンスで置き換える。
// 不正なフレームは false を返し、包んでいるインスタンスは変わらない
func (p *Portable[T]) Read(r io.Reader) bool {
	if r == nil {
		p.reject("invalid_source", nil)
		return false
	}
	dec := wire.NewDecoder(r)
	count := dec.Header()
	if err := dec.Err(); err != nil {
		if errors.Is(err, wire.ErrBadTag) {
			p.reject("bad_tag", err)
		} else {
			p.reject("truncated", err)
		}
		return false
	}
	if count != FrameElements {
		p.reject("bad_count", errors.Newf("frame announces %d elements", count))
		return false
	}
	name := dec.String()
	if err := dec.Err(); err != nil {
		p.reject("bad_name", err)
		return false
	}
	w, err := p.reg.Create(name)
	if err != nil {
		p.reject("unknown_name", err)
		return false
	}
	if err := w.DecodeWire(dec); err != nil {
		p.reject("payload", err)
		return false
	}
	if err := dec.Err(); err != nil {
		p.reject("payload", err)
		return false
	}
	p.SetWrapped(w)
	return true
}

func (p *Portable[T]) reject(reason string, err error) {
	if err != nil {
		p.logger.Debug("frame rejected", log.FrameKey, "read", log.ReasonKey, reason, "cause", err.Error())
		return
	}
	p.logger.Debug("frame rejected", log.FrameKey, "read", log.ReasonKey, reason)
}

// WriteFile は登録名とテキストダンプを path に書く
func (p *Portable[T]) WriteFile(path string) error {
	if !p.has {
		return errors.WithStack(errors.ErrNoWrapped)
	}
	body, err := p.wrapped.MarshalText()
	if err != nil {
		return errors.Wrapf(err, "marshal %s", p.wrapped.Name())
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError("write file", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	bw.WriteString(p.wrapped.Name())
	bw.WriteByte('\n')
	bw.Write(body)
	if err := bw.Flush(); err != nil {
		return errors.NewIOError("write file", path, err)
	}
	p.logger.Info("model written", log.OperationKey, log.OperationSave, log.PathKey, path, log.ModelNameKey, p.wrapped.Name())
	return nil
}

// ReadFile は WriteFile が書いたファイルを読み、インスタンスを置き換える
func (p *Portable[T]) ReadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewIOError("read file", path, err)
	}
	name, body, _ := strings.Cut(string(data), "\n")
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.Mark(errors.Newf("%s: missing name line", path), errors.ErrMalformedFrame)
	}
	w, err := p.reg.Create(name)
	if err != nil {
		return err
	}
	if err := w.UnmarshalText([]byte(body)); err != nil {
		return errors.Wrapf(err, "parse %s", path)
	}
	p.SetWrapped(w)
	p.logger.Info("model read", log.OperationKey, log.OperationLoad, log.PathKey, path, log.ModelNameKey, name)
	return nil
}
