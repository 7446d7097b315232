package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

const brotliMinLength = 1024

// Brotli compresses responses for clients that accept "br". Bodies shorter
// than 1 KiB are sent as-is, as are audio and image payloads.
func Brotli() gin.HandlerFunc {
	return BrotliLevel(brotli.DefaultCompression, brotliMinLength)
}

// BrotliLevel is Brotli with an explicit quality (0-11) and size threshold.
func BrotliLevel(quality, minLength int) gin.HandlerFunc {
	if quality < brotli.BestSpeed || quality > brotli.BestCompression {
		quality = brotli.DefaultCompression
	}
	if minLength <= 0 {
		minLength = brotliMinLength
	}
	pool := &sync.Pool{New: func() any { return brotli.NewWriterLevel(io.Discard, quality) }}

	return func(c *gin.Context) {
		if passthrough(c) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		bw := &brotliWriter{ResponseWriter: c.Writer, pool: pool, minLength: minLength}
		c.Writer = bw
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
			c.Writer = bw.ResponseWriter
		}()
		c.Next()
	}
}

// brotliWriter buffers the head of the body until it can tell whether the
// response is worth compressing, then commits to one path.
type brotliWriter struct {
	gin.ResponseWriter
	pool      *sync.Pool
	enc       *brotli.Writer
	buf       []byte
	minLength int
	decided   bool
}

func (w *brotliWriter) Write(p []byte) (int, error) {
	if w.decided {
		if w.enc != nil {
			return w.enc.Write(p)
		}
		return w.ResponseWriter.Write(p)
	}

	w.buf = append(w.buf, p...)
	if len(w.buf) < w.minLength {
		return len(p), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *brotliWriter) Flush() {
	if !w.decided {
		_ = w.decide()
	}
	if w.enc != nil {
		_ = w.enc.Flush()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) decide() error {
	w.decided = true
	h := w.Header()
	if len(w.buf) >= w.minLength && compressible(h) {
		h.Set("Content-Encoding", "br")
		h.Del("Content-Length")
		w.enc = w.pool.Get().(*brotli.Writer)
		w.enc.Reset(w.ResponseWriter)
	}

	buf := w.buf
	w.buf = nil
	if len(buf) == 0 {
		return nil
	}
	var err error
	if w.enc != nil {
		_, err = w.enc.Write(buf)
	} else {
		_, err = w.ResponseWriter.Write(buf)
	}
	return err
}

func (w *brotliWriter) close() error {
	if !w.decided {
		if err := w.decide(); err != nil {
			return err
		}
	}
	if w.enc == nil {
		return nil
	}
	err := w.enc.Close()
	w.pool.Put(w.enc)
	w.enc = nil
	return err
}

func compressible(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}
	ct := h.Get("Content-Type")
	for _, prefix := range []string{"audio/", "image/", "video/"} {
		if strings.HasPrefix(ct, prefix) {
			return false
		}
	}
	return true
}

// passthrough reports requests whose writer must not buffer: websocket
// upgrades, event streams and raw audio downloads.
func passthrough(c *gin.Context) bool {
	accept := c.GetHeader("Accept")
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket") ||
		strings.Contains(accept, "text/event-stream") ||
		strings.Contains(accept, "audio/")
}

func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "br") {
			continue
		}
		return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
	}
	return false
}
