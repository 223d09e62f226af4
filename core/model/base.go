package model

// State は学習器の状態を表す
type State int

const (
	// Empty はサンプルが一つもない状態
	Empty State = iota
	// Collecting はサンプルを受け取ったが未学習の状態
	Collecting
	// Trained は学習済みの状態
	Trained
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Collecting:
		return "collecting"
	case Trained:
		return "trained"
	default:
		return "unknown"
	}
}

// Base は全ての学習器・変換器の基底となる構造体
type Base struct {
	name  string
	state State
}

// NewBase は登録名 name を持つ Base を返す
func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) SetName(name string) { b.name = name }

// State は現在の状態を返す
func (b *Base) State() State { return b.state }

// SetState は状態を設定する
func (b *Base) SetState(s State) { b.state = s }

// IsTrained は学習済みかどうかを返す
func (b *Base) IsTrained() bool { return b.state == Trained }

// ResetState は状態を Empty に戻す
func (b *Base) ResetState() { b.state = Empty }
