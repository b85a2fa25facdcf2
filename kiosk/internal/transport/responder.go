package transport

import (
	"bytes"
	"log"
	"net/http"
	"strconv"
)

// bufferedResponse собирает весь ответ в памяти до начала отправки
type bufferedResponse struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header)}
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

// Buffered сначала собирает ответ next целиком, затем отправляет его порциями
// не больше maxChunk, не превышая окно window. Ошибка записи обрывает только это соединение.
func Buffered(next http.Handler, maxChunk, window int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := newBufferedResponse()
		next.ServeHTTP(resp, r)
		if resp.status == 0 {
			resp.status = http.StatusOK
		}

		header := w.Header()
		for k, v := range resp.header {
			header[k] = v
		}
		header.Set("Cache-Control", "no-store")
		header.Set("Connection", "close")
		header.Set("Content-Length", strconv.Itoa(resp.body.Len()))
		w.WriteHeader(resp.status)

		if r.Method == http.MethodHead {
			return
		}

		sender := NewSender(resp.body.Bytes(), maxChunk)
		if err := sendAll(sender, newHTTPWindow(w, window)); err != nil {
			total, sent := sender.Progress()
			log.Printf("[HTTP] Send fault on %s after %d/%d bytes: %v", r.URL.Path, sent, total, err)
			panic(http.ErrAbortHandler)
		}
	})
}
