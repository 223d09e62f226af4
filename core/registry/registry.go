// Package registry は名前付きプロトタイプのレジストリを提供します。
//
// プロトタイプは登録時にレジストリへ所有権が移り、以降は変更されません。
// Create は常にプロトタイプの深いコピーを返します。
package registry

import (
	"sort"
	"sync"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// Prototype はレジストリに登録できる型の制約です。
type Prototype[T any] interface {
	Name() string
	Clone() T
}

// Registry は名前をキーとしたプロトタイプの集合です。
// 学習器用、変換器用、スケーラ用にそれぞれ一つずつ作ります。
type Registry[T Prototype[T]] struct {
	mu     sync.RWMutex
	kind   string
	protos map[string]T
}

// New は空のレジストリを返します。kind はエラーとログの表示に使います。
func New[T Prototype[T]](kind string) *Registry[T] {
	return &Registry[T]{
		kind:   kind,
		protos: make(map[string]T),
	}
}

// Kind はレジストリの種別名を返します。
func (r *Registry[T]) Kind() string { return r.kind }

// Register はプロトタイプを登録します。
// 名前が空なら ErrEmptyKey、登録済みなら ErrDuplicateKey を包んだ RegistryError を返します。
func (r *Registry[T]) Register(proto T) error {
	if any(proto) == nil {
		return errors.NewRegistryError("register", "", errors.ErrEmptyKey)
	}
	key := proto.Name()
	if key == "" {
		return errors.NewRegistryError("register", key, errors.ErrEmptyKey)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.protos[key]; ok {
		return errors.NewRegistryError("register", key, errors.ErrDuplicateKey)
	}
	r.protos[key] = proto
	return nil
}

// MustRegister は Register の失敗でパニックします。起動時の登録処理向けです。
func (r *Registry[T]) MustRegister(protos ...T) {
	for _, p := range protos {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Create は key のプロトタイプの複製を返します。返り値は呼び出し側が所有します。
func (r *Registry[T]) Create(key string) (T, error) {
	r.mu.RLock()
	proto, ok := r.protos[key]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, errors.NewRegistryError("create", key, errors.ErrUnknownKey)
	}
	return proto.Clone(), nil
}

// Has は key が登録されているかを返します。
func (r *Registry[T]) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.protos[key]
	return ok
}

// Keys は登録名を辞書順で返します。
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.protos))
	for k := range r.protos {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len は登録数を返します。
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.protos)
}
