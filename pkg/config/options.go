// Package config は学習器の Configure に渡すオプション辞書を提供します。
//
// 各キーは値のグループ (1個以上の Value) を持ちます。"(dom 2) (type 1 linear)" のような
// S式テキスト、または viper / YAML から得た map から構築できます。
package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// Kind は Value の型です。
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindString
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value は型付きのオプション値です。
type Value struct {
	kind Kind
	i    int
	f    float64
	s    string
	list []Value
}

func Int(v int) Value          { return Value{kind: KindInt, i: v} }
func Float(v float64) Value    { return Value{kind: KindFloat, f: v} }
func String(v string) Value    { return Value{kind: KindString, s: v} }
func List(vs ...Value) Value   { return Value{kind: KindList, list: append([]Value(nil), vs...)} }
func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) Items() []Value { return v.list }

// IsNumber は数値、または数値として解釈できる文字列なら true を返します。
func (v Value) IsNumber() bool {
	_, ok := v.AsFloat()
	return ok
}

// AsInt は整数として取り出します。整数値の float と数値文字列も受け付けます。
func (v Value) AsInt() (int, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) {
			return int(v.f), true
		}
	case KindString:
		s := strings.TrimSpace(v.s)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	}
	return 0, false
}

// AsFloat は実数として取り出します。
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	case KindString:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsBool は "true"/"on"/"yes" と非ゼロの数値を true とみなします。
func (v Value) AsBool() (bool, bool) {
	if v.kind == KindString {
		switch strings.ToLower(v.s) {
		case "true", "on", "yes":
			return true, true
		case "false", "off", "no":
			return false, true
		}
	}
	if f, ok := v.AsFloat(); ok {
		return f != 0, true
	}
	return false, false
}

// AsString は値の文字列表現を返します。文字列以外も変換します。
func (v Value) AsString() string {
	if v.kind == KindString {
		return v.s
	}
	return v.String()
}

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.i)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		if v.s == "" || strings.ContainsAny(v.s, " \t\n()\"") {
			return strconv.Quote(v.s)
		}
		return v.s
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return ""
}

// Options はキーから値グループへの順序付き辞書です。ゼロ値は使えません。New を使ってください。
type Options struct {
	keys   []string
	groups map[string][]Value
}

// New は空の Options を返します。
func New() *Options {
	return &Options{groups: make(map[string][]Value)}
}

// Set は key のグループを vals で置き換えます。既存キーの順序は保たれます。
func (o *Options) Set(key string, vals ...Value) *Options {
	if _, ok := o.groups[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.groups[key] = append([]Value(nil), vals...)
	return o
}

// Has は key が存在するかを返します。
func (o *Options) Has(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.groups[key]
	return ok
}

// Find は key の最初の値を返します。
func (o *Options) Find(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	g, ok := o.groups[key]
	if !ok || len(g) == 0 {
		return Value{}, false
	}
	return g[0], true
}

// FindGroup は key の値グループ全体を返します。
func (o *Options) FindGroup(key string) ([]Value, bool) {
	if o == nil {
		return nil, false
	}
	g, ok := o.groups[key]
	return g, ok
}

// Keys は挿入順のキー一覧を返します。
func (o *Options) Keys() []string {
	if o == nil {
		return nil
	}
	return append([]string(nil), o.keys...)
}

// Len はキーの数です。
func (o *Options) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// String は Parse で読み戻せる形式で出力します。
func (o *Options) String() string {
	if o == nil {
		return ""
	}
	parts := make([]string, 0, len(o.keys))
	for _, k := range o.keys {
		items := []string{k}
		for _, v := range o.groups[k] {
			items = append(items, v.String())
		}
		parts = append(parts, "("+strings.Join(items, " ")+")")
	}
	return strings.Join(parts, " ")
}

// FromMap は viper や YAML から得た map を Options に変換します。
// スライスはグループになり、スライス内のスライスは List になります。キーは辞書順に並びます。
func FromMap(m map[string]any) (*Options, error) {
	o := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := m[k]
		if items, ok := raw.([]any); ok {
			group := make([]Value, 0, len(items))
			for _, item := range items {
				v, err := toValue(item)
				if err != nil {
					return nil, errors.Wrapf(err, "option %q", k)
				}
				group = append(group, v)
			}
			o.Set(k, group...)
			continue
		}
		v, err := toValue(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "option %q", k)
		}
		o.Set(k, v)
	}
	return o, nil
}

func toValue(raw any) (Value, error) {
	switch x := raw.(type) {
	case int:
		return Int(x), nil
	case int32:
		return Int(int(x)), nil
	case int64:
		return Int(int(x)), nil
	case uint:
		return Int(int(x)), nil
	case uint64:
		return Int(int(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case string:
		return String(x), nil
	case bool:
		return String(strconv.FormatBool(x)), nil
	case []any:
		vs := make([]Value, 0, len(x))
		for _, item := range x {
			v, err := toValue(item)
			if err != nil {
				return Value{}, err
			}
			vs = append(vs, v)
		}
		return List(vs...), nil
	case []float64:
		vs := make([]Value, len(x))
		for i, f := range x {
			vs[i] = Float(f)
		}
		return List(vs...), nil
	case []string:
		vs := make([]Value, len(x))
		for i, s := range x {
			vs[i] = String(s)
		}
		return List(vs...), nil
	default:
		return Value{}, errors.NewValidationError("value", fmt.Sprintf("unsupported type %T", raw), raw)
	}
}
