package display

import (
	"log"
	"sync"
)

const (
	// Lines - число строк дисплея
	Lines = 4
	// MaxLineLen - максимальная длина строки в символах
	MaxLineLen = 31
)

// Frame - содержимое дисплея
type Frame [Lines]string

// Sink - физический дисплей; отрисовывает или отбрасывает кадр
type Sink interface {
	SetLines(f Frame)
}

// NopSink отбрасывает кадры
type NopSink struct{}

func (NopSink) SetLines(Frame) {}

// LogSink пишет каждый кадр в лог
type LogSink struct{}

func (LogSink) SetLines(f Frame) {
	log.Printf("[DISPLAY] %q | %q | %q | %q", f[0], f[1], f[2], f[3])
}

// Listener получает кадр и его порядковый номер после изменения
type Listener func(f Frame, seq uint64)

// Mirror хранит последний кадр для веб-клиентов и передает его в Sink.
// Читатели получают копию кадра, записанного целиком.
type Mirror struct {
	mu        sync.RWMutex
	frame     Frame
	seq       uint64
	sinks     []Sink
	listeners []Listener
}

// NewMirror создает зеркало дисплея поверх заданных Sink
func NewMirror(sinks ...Sink) *Mirror {
	return &Mirror{sinks: sinks}
}

// Subscribe регистрирует слушателя изменений кадра
func (m *Mirror) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Set записывает четыре строки; длинные строки обрезаются
func (m *Mirror) Set(l1, l2, l3, l4 string) {
	m.SetFrame(Frame{l1, l2, l3, l4})
}

// SetFrame записывает кадр целиком и перерисовывает дисплей
func (m *Mirror) SetFrame(f Frame) {
	for i := range f {
		f[i] = truncate(f[i])
	}

	m.mu.Lock()
	changed := f != m.frame
	m.frame = f
	if changed {
		m.seq++
	}
	seq := m.seq
	sinks := m.sinks
	listeners := m.listeners
	m.mu.Unlock()

	for _, s := range sinks {
		s.SetLines(f)
	}
	if changed {
		for _, l := range listeners {
			l(f, seq)
		}
	}
}

// Frame возвращает копию текущего кадра и его номер
func (m *Mirror) Frame() (Frame, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame, m.seq
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxLineLen {
		return s
	}
	return string(r[:MaxLineLen])
}
