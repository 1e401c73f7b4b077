package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes the compression middleware.
type BrotliConfig struct {
	Quality   int
	MinLength int
	// Skipper, when set, bypasses compression for matching requests.
	Skipper func(c *gin.Context) bool
}

// DefaultBrotliConfig compresses JSON bodies of at least 1 KiB.
var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
}

// brotliWriter buffers the body until MinLength bytes are known, then either
// switches to a compressed stream for the rest of the response or, when the
// handler finishes first, writes the small body as is.
type brotliWriter struct {
	gin.ResponseWriter
	quality   int
	minLength int
	buf       []byte
	br        *brotli.Writer
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.br != nil {
		return bw.br.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}

	h := bw.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	bw.br = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)

	pending := bw.buf
	bw.buf = nil
	if _, err := bw.br.Write(pending); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// Flush pushes whatever is buffered to the client.
func (bw *brotliWriter) Flush() {
	if bw.br != nil {
		_ = bw.br.Flush()
	} else if len(bw.buf) > 0 {
		_, _ = bw.ResponseWriter.Write(bw.buf)
		bw.buf = nil
	}
	bw.ResponseWriter.Flush()
}

// finish terminates the compressed stream or writes the short plain body.
func (bw *brotliWriter) finish() error {
	if bw.br != nil {
		return bw.br.Close()
	}
	if len(bw.buf) == 0 {
		return nil
	}
	bw.ResponseWriter.Header().Set("Content-Length", strconv.Itoa(len(bw.buf)))
	_, err := bw.ResponseWriter.Write(bw.buf)
	bw.buf = nil
	return err
}

// Brotli compresses responses larger than MinLength for clients that accept "br".
func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

// BrotliWithConfig is Brotli with explicit settings.
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if shouldSkip(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		c.Writer = bw
		defer func() {
			if err := bw.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// shouldSkip reports requests whose responses must pass through untouched.
func shouldSkip(c *gin.Context) bool {
	if c.Request.Method == http.MethodHead {
		return true
	}
	// The Upgrade handshake fails if the response is wrapped.
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	// promhttp negotiates its own compression.
	return c.Request.URL.Path == "/metrics"
}

// acceptsBrotli checks Accept-Encoding for "br" with a non-zero q-value.
func acceptsBrotli(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if !strings.EqualFold(strings.TrimSpace(coding), "br") {
			continue
		}
		params = strings.ReplaceAll(params, " ", "")
		if q, ok := strings.CutPrefix(params, "q="); ok {
			v, err := strconv.ParseFloat(q, 64)
			return err == nil && v > 0
		}
		return true
	}
	return false
}
