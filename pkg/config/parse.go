package config

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// Parse は "(key v1 v2 ...) (key2 (a b c))" 形式のテキストを読みます。
// 括弧の中の括弧は List になります。ダブルクオートで空白を含む文字列を書けます。
func Parse(text string) (*Options, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	o := New()
	for !p.done() {
		if p.peek() != "(" {
			return nil, errors.NewValidationError("options", "expected '('", p.peek())
		}
		v, err := p.list()
		if err != nil {
			return nil, err
		}
		items := v.Items()
		if len(items) == 0 {
			return nil, errors.NewValidationError("options", "empty group", text)
		}
		if items[0].Kind() != KindString {
			return nil, errors.NewValidationError("options", "group key must be a word", items[0].String())
		}
		o.Set(items[0].s, items[1:]...)
	}
	return o, nil
}

// MustParse は Parse のパニック版です。テストと組み込みの既定値専用です。
func MustParse(text string) *Options {
	o, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return o
}

type token struct {
	text   string
	quoted bool
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() string {
	if p.done() {
		return ""
	}
	return p.toks[p.pos].text
}

func (p *parser) list() (Value, error) {
	p.pos++ // '('
	var items []Value
	for {
		if p.done() {
			return Value{}, errors.NewValidationError("options", "unbalanced parentheses", nil)
		}
		tok := p.toks[p.pos]
		switch {
		case !tok.quoted && tok.text == ")":
			p.pos++
			return List(items...), nil
		case !tok.quoted && tok.text == "(":
			v, err := p.list()
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		default:
			p.pos++
			items = append(items, atom(tok))
		}
	}
}

func atom(tok token) Value {
	if tok.quoted {
		return String(tok.text)
	}
	if n, err := strconv.Atoi(tok.text); err == nil {
		return Int(n)
	}
	if f, err := strconv.ParseFloat(tok.text, 64); err == nil {
		return Float(f)
	}
	return String(tok.text)
}

func tokenize(text string) ([]token, error) {
	var toks []token
	rs := []rune(text)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(' || r == ')':
			toks = append(toks, token{text: string(r)})
			i++
		case r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				if rs[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(rs) {
				return nil, errors.NewValidationError("options", "unterminated string", text)
			}
			s, err := strconv.Unquote(string(rs[i : j+1]))
			if err != nil {
				return nil, errors.NewValidationError("options", "bad string literal", string(rs[i:j+1]))
			}
			toks = append(toks, token{text: s, quoted: true})
			i = j + 1
		default:
			var b strings.Builder
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != '(' && rs[i] != ')' && rs[i] != '"' {
				b.WriteRune(rs[i])
				i++
			}
			toks = append(toks, token{text: b.String()})
		}
	}
	return toks, nil
}
