package transport

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	DefaultMaxChunk   = 1200
	DefaultSendWindow = 2920
)

// Window - окно приема собеседника
type Window interface {
	// Available возвращает число байт, которое можно отправить до подтверждения
	Available() int
	Write(p []byte) (int, error)
}

// Sender отправляет готовый ответ порциями, сохраняя курсор между приостановками
type Sender struct {
	buf      []byte
	total    int
	sent     int
	maxChunk int
}

// NewSender создает отправитель для полностью собранного ответа
func NewSender(buf []byte, maxChunk int) *Sender {
	if maxChunk <= 0 {
		maxChunk = DefaultMaxChunk
	}
	return &Sender{buf: buf, total: len(buf), maxChunk: maxChunk}
}

// Resume продолжает отправку, пока окно открыто.
// Возвращает done=true, когда отправлено все; повторный вызов после этого ничего не пишет.
func (s *Sender) Resume(w Window) (bool, error) {
	for s.sent < s.total {
		avail := w.Available()
		if avail <= 0 {
			return false, nil
		}

		n := min(s.maxChunk, avail, s.total-s.sent)
		written, err := w.Write(s.buf[s.sent : s.sent+n])
		s.sent += written
		if err != nil {
			return false, fmt.Errorf("failed to write chunk at %d/%d: %w", s.sent, s.total, err)
		}
	}
	return true, nil
}

// Progress возвращает (total, sent)
func (s *Sender) Progress() (int, int) {
	return s.total, s.sent
}

// Done сообщает, что ответ отправлен целиком
func (s *Sender) Done() bool {
	return s.sent >= s.total
}

// httpWindow моделирует окно поверх http.ResponseWriter: Flush служит подтверждением
type httpWindow struct {
	w        http.ResponseWriter
	rc       *http.ResponseController
	size     int
	inFlight int
}

func newHTTPWindow(w http.ResponseWriter, size int) *httpWindow {
	if size <= 0 {
		size = DefaultSendWindow
	}
	return &httpWindow{w: w, rc: http.NewResponseController(w), size: size}
}

func (h *httpWindow) Available() int {
	return h.size - h.inFlight
}

func (h *httpWindow) Write(p []byte) (int, error) {
	n, err := h.w.Write(p)
	h.inFlight += n
	return n, err
}

// Ack выталкивает отправленное и снова открывает окно
func (h *httpWindow) Ack() error {
	if err := h.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return fmt.Errorf("failed to flush: %w", err)
	}
	h.inFlight = 0
	return nil
}

// sendAll гоняет отправитель до конца, подтверждая окно после каждой порции
func sendAll(s *Sender, w *httpWindow) error {
	for {
		done, err := s.Resume(w)
		if err != nil {
			return err
		}
		if ackErr := w.Ack(); ackErr != nil {
			return ackErr
		}
		if done {
			return nil
		}
	}
}
