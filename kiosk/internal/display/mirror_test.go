package display

import (
	"strings"
	"sync"
	"testing"
)

// recordingSink для тестирования - собирает все кадры
type recordingSink struct {
	mu     sync.Mutex
	frames []Frame
}

func (s *recordingSink) SetLines(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func TestMirror_SetAndRead(t *testing.T) {
	sink := &recordingSink{}
	m := NewMirror(sink)

	m.Set("Iniciar triagem?", "(A) Sim   (B) Nao", "", "Botao Joy: Relatorio")

	f, seq := m.Frame()
	if f[0] != "Iniciar triagem?" || f[3] != "Botao Joy: Relatorio" {
		t.Errorf("Unexpected frame: %q", f)
	}
	if seq != 1 {
		t.Errorf("Expected seq 1, got %d", seq)
	}
	if sink.count() != 1 {
		t.Errorf("Expected sink to receive 1 frame, got %d", sink.count())
	}
}

func TestMirror_RedrawWithoutChange(t *testing.T) {
	sink := &recordingSink{}
	m := NewMirror(sink)

	notified := 0
	m.Subscribe(func(Frame, uint64) { notified++ })

	m.Set("a", "b", "c", "d")
	m.Set("a", "b", "c", "d")

	// Дисплей перерисовывается всегда, слушатели - только при изменении
	if sink.count() != 2 {
		t.Errorf("Expected 2 redraws, got %d", sink.count())
	}
	if notified != 1 {
		t.Errorf("Expected 1 notification, got %d", notified)
	}
	if _, seq := m.Frame(); seq != 1 {
		t.Errorf("Expected seq to stay 1, got %d", seq)
	}
}

func TestMirror_Truncates(t *testing.T) {
	m := NewMirror()
	m.Set(strings.Repeat("x", 40), "", "", "")

	f, _ := m.Frame()
	if len(f[0]) != MaxLineLen {
		t.Errorf("Expected line truncated to %d, got %d", MaxLineLen, len(f[0]))
	}
}

func TestMirror_ConcurrentReaders(t *testing.T) {
	m := NewMirror(NopSink{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				m.Set("AAAA", "AAAA", "AAAA", "AAAA")
			} else {
				m.Set("BBBB", "BBBB", "BBBB", "BBBB")
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			f, _ := m.Frame()
			// Кадр никогда не бывает смешанным
			if f[0] != f[3] {
				t.Errorf("Torn frame read: %q", f)
				return
			}
		}
	}()
	wg.Wait()
}
