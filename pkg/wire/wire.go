// Package wire はコネクション転送用の自己記述的なバイナリ形式を実装します。
//
// すべての要素は int32 リトルエンディアンのタグに続いて値を持ちます:
//
//	TagInt    int32
//	TagFloat  float64 (IEEE 754)
//	TagString int32 長さ + UTF-8 バイト列
//	TagList   int32 要素数 (フレームヘッダ)
//
// ベクトルは長さ (Int) + 各成分 (Float)、行列は行数・列数 (Int) + 行優先の成分です。
// 長さ 0 のベクトルと行列は nil として読み戻されます。
//
// Encoder と Decoder は最初のエラーを保持し、以降の操作は何もしません。
// 最後に Err で確認してください。
package wire

import (
	"encoding/binary"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// 要素タグ
const (
	TagInt    int32 = 1
	TagString int32 = 4
	TagFloat  int32 = 10
	TagList   int32 = 256
)

// 既定の上限。壊れたフレームで巨大な確保をしないためのもの
const (
	DefaultMaxString   = 1 << 20
	DefaultMaxElements = 1 << 26
)

// Encoder は要素を w に書き出します。
type Encoder struct {
	w   io.Writer
	buf [8]byte
	err error
}

// NewEncoder は w に書き込む Encoder を返します。
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Err は最初に発生した書き込みエラーを返します。
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) raw(p []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.w.Write(p); err != nil {
		e.err = errors.Wrap(err, "wire: write")
	}
}

func (e *Encoder) int32(v int32) {
	binary.LittleEndian.PutUint32(e.buf[:4], uint32(v))
	e.raw(e.buf[:4])
}

// Header はフレームヘッダ (TagList, count) を書きます。
func (e *Encoder) Header(count int) {
	e.int32(TagList)
	e.int32(int32(count))
}

// Int は整数を書きます。int32 に収まらない値はエラーになります。
func (e *Encoder) Int(v int) {
	if e.err == nil && (v > math.MaxInt32 || v < math.MinInt32) {
		e.err = errors.Newf("wire: int %d overflows int32", v)
		return
	}
	e.int32(TagInt)
	e.int32(int32(v))
}

// Float は実数を書きます。
func (e *Encoder) Float(v float64) {
	e.int32(TagFloat)
	binary.LittleEndian.PutUint64(e.buf[:8], math.Float64bits(v))
	e.raw(e.buf[:8])
}

// Bool は 0/1 の Int として書きます。
func (e *Encoder) Bool(v bool) {
	if v {
		e.Int(1)
		return
	}
	e.Int(0)
}

// String は長さ付き文字列を書きます。
func (e *Encoder) String(s string) {
	e.int32(TagString)
	e.int32(int32(len(s)))
	e.raw([]byte(s))
}

// Vector は長さと各成分を書きます。nil は長さ 0 です。
func (e *Encoder) Vector(v mat.Vector) {
	if nilVector(v) {
		e.Int(0)
		return
	}
	n := v.Len()
	e.Int(n)
	for i := 0; i < n; i++ {
		e.Float(v.AtVec(i))
	}
}

// Matrix は行数・列数と行優先の成分を書きます。nil は 0x0 です。
func (e *Encoder) Matrix(m mat.Matrix) {
	if nilMatrix(m) {
		e.Int(0)
		e.Int(0)
		return
	}
	r, c := m.Dims()
	e.Int(r)
	e.Int(c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			e.Float(m.At(i, j))
		}
	}
}

// nilVector は nil の *mat.VecDense を包んだインターフェースも nil とみなす
func nilVector(v mat.Vector) bool {
	vd, ok := v.(*mat.VecDense)
	return v == nil || (ok && vd == nil)
}

func nilMatrix(m mat.Matrix) bool {
	switch t := m.(type) {
	case nil:
		return true
	case *mat.Dense:
		return t == nil
	case *mat.VecDense:
		return t == nil
	}
	return false
}

// Decoder は Encoder が書いた要素を読みます。
type Decoder struct {
	r           io.Reader
	buf         [8]byte
	err         error
	maxString   int
	maxElements int
}

// Option は Decoder の上限を変更します。
type Option func(*Decoder)

// WithMaxString は文字列長の上限を設定します。
func WithMaxString(n int) Option { return func(d *Decoder) { d.maxString = n } }

// WithMaxElements はベクトル・行列の要素数の上限を設定します。
func WithMaxElements(n int) Option { return func(d *Decoder) { d.maxElements = n } }

// NewDecoder は r から読む Decoder を返します。
func NewDecoder(r io.Reader, opts ...Option) *Decoder {
	d := &Decoder{r: r, maxString: DefaultMaxString, maxElements: DefaultMaxElements}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Err は最初のエラーを返します。フォーマット違反は ErrMalformedFrame でマークされています。
func (d *Decoder) Err() error { return d.err }

// Fail は呼び出し側が検出した内容の不整合を記録します。
func (d *Decoder) Fail(err error) {
	if d.err == nil && err != nil {
		d.err = err
	}
}

func (d *Decoder) malformed(format string, args ...interface{}) {
	if d.err == nil {
		d.err = errors.Mark(errors.Newf("wire: "+format, args...), errors.ErrMalformedFrame)
	}
}

func (d *Decoder) raw(n int) []byte {
	if d.err != nil {
		return nil
	}
	if _, err := io.ReadFull(d.r, d.buf[:n]); err != nil {
		d.err = errors.Mark(errors.Wrap(err, "wire: read"), errors.ErrMalformedFrame)
		return nil
	}
	return d.buf[:n]
}

func (d *Decoder) int32() int32 {
	p := d.raw(4)
	if p == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(p))
}

func (d *Decoder) expect(tag int32) bool {
	got := d.int32()
	if d.err != nil {
		return false
	}
	if got != tag {
		d.malformed("expected tag %d, got %d", tag, got)
		return false
	}
	return true
}

// Header はフレームヘッダを読み、要素数を返します。
// タグが TagList でない場合は ErrBadTag でマークされたエラーになります。
func (d *Decoder) Header() int {
	got := d.int32()
	if d.err != nil {
		return 0
	}
	if got != TagList {
		d.err = errors.Mark(errors.Mark(errors.Newf("wire: expected list header, got tag %d", got), ErrBadTag), errors.ErrMalformedFrame)
		return 0
	}
	return int(d.int32())
}

// Int は整数を読みます。
func (d *Decoder) Int() int {
	if !d.expect(TagInt) {
		return 0
	}
	return int(d.int32())
}

// Float は実数を読みます。
func (d *Decoder) Float() float64 {
	if !d.expect(TagFloat) {
		return 0
	}
	p := d.raw(8)
	if p == nil {
		return 0
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(p))
}

// Bool は Int を読み、非ゼロを true とします。
func (d *Decoder) Bool() bool {
	return d.Int() != 0
}

// String は長さ付き文字列を読みます。
func (d *Decoder) String() string {
	if !d.expect(TagString) {
		return ""
	}
	n := int(d.int32())
	if d.err != nil {
		return ""
	}
	if n < 0 || n > d.maxString {
		d.malformed("string length %d out of range", n)
		return ""
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(d.r, p); err != nil {
		d.err = errors.Mark(errors.Wrap(err, "wire: read string"), errors.ErrMalformedFrame)
		return ""
	}
	return string(p)
}

// Count は要素数として Int を読み、負数と上限超過を拒否します。
func (d *Decoder) Count() int {
	n := d.Int()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > d.maxElements {
		d.malformed("count %d out of range", n)
		return 0
	}
	return n
}

// Vector はベクトルを読みます。長さ 0 なら nil を返します。
func (d *Decoder) Vector() *mat.VecDense {
	n := d.Count()
	if d.err != nil || n == 0 {
		return nil
	}
	data := d.floats(n)
	if d.err != nil {
		return nil
	}
	return mat.NewVecDense(n, data)
}

// Matrix は行列を読みます。要素数 0 なら nil を返します。
func (d *Decoder) Matrix() *mat.Dense {
	r := d.Count()
	c := d.Count()
	if d.err != nil {
		return nil
	}
	if r == 0 || c == 0 {
		if r != c {
			d.malformed("degenerate matrix %dx%d", r, c)
		}
		return nil
	}
	if r > d.maxElements/c {
		d.malformed("matrix %dx%d too large", r, c)
		return nil
	}
	data := d.floats(r * c)
	if d.err != nil {
		return nil
	}
	return mat.NewDense(r, c, data)
}

// floats は n 個の Float を読む。宣言された要素数だけ先に確保しないよう少しずつ伸ばす
func (d *Decoder) floats(n int) []float64 {
	data := make([]float64, 0, min(n, 1024))
	for i := 0; i < n && d.err == nil; i++ {
		data = append(data, d.Float())
	}
	return data
}
