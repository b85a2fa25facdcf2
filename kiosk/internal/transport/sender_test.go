package transport

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
)

// fakeWindow для тестирования - окно с ручным подтверждением
type fakeWindow struct {
	size     int
	inFlight int
	out      bytes.Buffer
	chunks   []int
	failAt   int
}

func (w *fakeWindow) Available() int { return w.size - w.inFlight }

func (w *fakeWindow) Write(p []byte) (int, error) {
	if w.failAt > 0 && w.out.Len()+len(p) > w.failAt {
		return 0, errors.New("connection reset")
	}
	w.chunks = append(w.chunks, len(p))
	w.inFlight += len(p)
	return w.out.Write(p)
}

func (w *fakeWindow) ack() { w.inFlight = 0 }

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return b
}

func TestSender_SuspendsOnWindowAndResumes(t *testing.T) {
	body := payload(5000)
	s := NewSender(body, 1200)
	w := &fakeWindow{size: 2920}

	done, err := s.Resume(w)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if done {
		t.Fatal("Expected suspension on exhausted window")
	}
	if total, sent := s.Progress(); total != 5000 || sent != 2920 {
		t.Errorf("Expected cursor 2920/5000, got %d/%d", sent, total)
	}

	// Пока нет подтверждения, отправка не двигается
	if done, _ := s.Resume(w); done {
		t.Fatal("Must not finish without ack")
	}
	if _, sent := s.Progress(); sent != 2920 {
		t.Errorf("Cursor moved without ack: %d", sent)
	}

	w.ack()
	done, err = s.Resume(w)
	if err != nil || !done {
		t.Fatalf("Expected done after ack, got done=%v err=%v", done, err)
	}

	want := []int{1200, 1200, 520, 1200, 880}
	if len(w.chunks) != len(want) {
		t.Fatalf("Expected chunks %v, got %v", want, w.chunks)
	}
	for i := range want {
		if w.chunks[i] != want[i] {
			t.Errorf("Chunk %d: expected %d, got %d", i, want[i], w.chunks[i])
		}
	}
	if !bytes.Equal(w.out.Bytes(), body) {
		t.Error("Body mismatch after resumption")
	}
}

func TestSender_ResumeAfterDoneIsNoop(t *testing.T) {
	s := NewSender(payload(100), 1200)
	w := &fakeWindow{size: 2920}

	if done, _ := s.Resume(w); !done {
		t.Fatal("Expected done")
	}
	if done, err := s.Resume(w); !done || err != nil {
		t.Errorf("Expected idempotent done, got %v %v", done, err)
	}
	if len(w.chunks) != 1 {
		t.Errorf("Expected a single write, got %d", len(w.chunks))
	}
	if !s.Done() {
		t.Error("Expected Done() true")
	}
}

func TestSender_EmptyBody(t *testing.T) {
	s := NewSender(nil, 1200)
	w := &fakeWindow{size: 0}

	if done, err := s.Resume(w); !done || err != nil {
		t.Errorf("Empty body must be done immediately, got %v %v", done, err)
	}
}

func TestSender_WriteFault(t *testing.T) {
	s := NewSender(payload(3000), 1000)
	w := &fakeWindow{size: 10000, failAt: 2500}

	_, err := s.Resume(w)
	if err == nil {
		t.Fatal("Expected write error")
	}
	if _, sent := s.Progress(); sent != 2000 {
		t.Errorf("Expected cursor to stop at 2000, got %d", sent)
	}
}

// countingWriter для тестирования - запоминает порции и сбросы
type countingWriter struct {
	header     http.Header
	status     int
	body       bytes.Buffer
	writes     []int
	sinceFlush int
	maxBurst   int
	flushes    int
	fail       bool
}

func newCountingWriter() *countingWriter {
	return &countingWriter{header: make(http.Header)}
}

func (c *countingWriter) Header() http.Header { return c.header }

func (c *countingWriter) WriteHeader(status int) { c.status = status }

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.fail {
		return 0, errors.New("broken pipe")
	}
	c.writes = append(c.writes, len(p))
	c.sinceFlush += len(p)
	if c.sinceFlush > c.maxBurst {
		c.maxBurst = c.sinceFlush
	}
	return c.body.Write(p)
}

func (c *countingWriter) Flush() {
	c.flushes++
	c.sinceFlush = 0
}

func TestBuffered_ChunksWithinWindow(t *testing.T) {
	body := payload(10000)
	h := Buffered(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write(body[:4000])
		w.Write(body[4000:])
	}), 1200, 2920)

	cw := newCountingWriter()
	req, _ := http.NewRequest(http.MethodGet, "/x", nil)
	h.ServeHTTP(cw, req)

	if cw.status != http.StatusOK {
		t.Errorf("Expected 200, got %d", cw.status)
	}
	if !bytes.Equal(cw.body.Bytes(), body) {
		t.Fatal("Body mismatch")
	}
	for i, n := range cw.writes {
		if n > 1200 {
			t.Errorf("Write %d exceeds max chunk: %d", i, n)
		}
	}
	if cw.maxBurst > 2920 {
		t.Errorf("Unacknowledged bytes exceeded window: %d", cw.maxBurst)
	}
	if cw.header.Get("Content-Length") != "10000" {
		t.Errorf("Expected Content-Length 10000, got %s", cw.header.Get("Content-Length"))
	}
	if cw.header.Get("Cache-Control") != "no-store" || cw.header.Get("Connection") != "close" {
		t.Errorf("Missing no-store/close headers: %v", cw.header)
	}
}

func TestBuffered_WriteFaultAbortsConnection(t *testing.T) {
	h := Buffered(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload(100))
	}), 1200, 2920)

	cw := newCountingWriter()
	cw.fail = true
	req, _ := http.NewRequest(http.MethodGet, "/x", nil)

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("Expected ErrAbortHandler panic, got %v", rec)
		}
	}()
	h.ServeHTTP(cw, req)
}
