package input

import "sync"

// Events - фронты нажатий за один такт
type Events struct {
	A     bool
	B     bool
	Left  bool
	Right bool
	Joy   bool
}

// Any сообщает, было ли хоть одно нажатие
func (e Events) Any() bool {
	return e.A || e.B || e.Left || e.Right || e.Joy
}

// Source выдает накопленные фронты раз в такт
type Source interface {
	Poll() Events
}

// Key - дискретная кнопка киоска
type Key int

const (
	KeyA Key = iota
	KeyB
	KeyLeft
	KeyRight
	KeyJoy
)

func (k Key) String() string {
	switch k {
	case KeyA:
		return "A"
	case KeyB:
		return "B"
	case KeyLeft:
		return "LEFT"
	case KeyRight:
		return "RIGHT"
	case KeyJoy:
		return "JOY"
	default:
		return "?"
	}
}

// Latch копит нажатия из другой горутины до следующего Poll.
// Повторное нажатие одной кнопки внутри такта дает один фронт.
type Latch struct {
	mu      sync.Mutex
	pending Events
}

func NewLatch() *Latch {
	return &Latch{}
}

// Press регистрирует фронт кнопки
func (l *Latch) Press(k Key) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch k {
	case KeyA:
		l.pending.A = true
	case KeyB:
		l.pending.B = true
	case KeyLeft:
		l.pending.Left = true
	case KeyRight:
		l.pending.Right = true
	case KeyJoy:
		l.pending.Joy = true
	}
}

// Poll возвращает накопленные фронты и сбрасывает их
func (l *Latch) Poll() Events {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := l.pending
	l.pending = Events{}
	return ev
}
