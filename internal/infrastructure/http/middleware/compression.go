package middleware

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"go.uber.org/zap"
)

// CompressionConfig configures response compression
type CompressionConfig struct {
	BrotliLevel       int
	GzipLevel         int
	MinSizeBytes      int
	CompressibleTypes []string
}

// DefaultCompressionConfig returns the settings used for the form pages
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		BrotliLevel:  6,
		GzipLevel:    6,
		MinSizeBytes: 1024,
		CompressibleTypes: []string{
			"text/html",
			"text/css",
			"text/plain",
			"application/json",
		},
	}
}

// Compression buffers responses and compresses them with brotli, or gzip
// when the client does not accept brotli. Small or binary bodies pass
// through unchanged.
func Compression(cfg CompressionConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			encoding := bestEncoding(r.Header.Get("Accept-Encoding"))
			if encoding == "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			buf := &bufferedWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(buf, r)

			w.Header().Add("Vary", "Accept-Encoding")
			content := buf.body.Bytes()
			if !cfg.compressible(buf, len(content)) {
				w.WriteHeader(buf.status)
				_, _ = w.Write(content)
				return
			}

			compressed, err := cfg.compress(encoding, content)
			if err != nil {
				logger.Warn("Response compression failed", zap.String("encoding", encoding), zap.Error(err))
				w.WriteHeader(buf.status)
				_, _ = w.Write(content)
				return
			}

			w.Header().Set("Content-Encoding", encoding)
			w.Header().Set("Content-Length", strconv.Itoa(len(compressed)))
			w.WriteHeader(buf.status)
			_, _ = w.Write(compressed)
		})
	}
}

func (c CompressionConfig) compressible(buf *bufferedWriter, size int) bool {
	if size < c.MinSizeBytes || buf.status == http.StatusNoContent || buf.status == http.StatusNotModified {
		return false
	}
	if buf.Header().Get("Content-Encoding") != "" {
		return false
	}

	contentType := buf.Header().Get("Content-Type")
	mainType := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	for _, t := range c.CompressibleTypes {
		if mainType == t {
			return true
		}
	}
	return false
}

func (c CompressionConfig) compress(encoding string, content []byte) ([]byte, error) {
	var out bytes.Buffer

	if encoding == "br" {
		bw := brotli.NewWriterLevel(&out, c.BrotliLevel)
		if _, err := bw.Write(content); err != nil {
			return nil, err
		}
		if err := bw.Close(); err != nil {
			return nil, err
		}
		return out.Bytes(), nil
	}

	gw, err := gzip.NewWriterLevel(&out, c.GzipLevel)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(content); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// bestEncoding prefers brotli over gzip. Encodings with q=0 are refused.
func bestEncoding(header string) string {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				q = parsed
			}
		}
		accepted[strings.TrimSpace(name)] = q > 0
	}

	switch {
	case accepted["br"]:
		return "br"
	case accepted["gzip"]:
		return "gzip"
	}
	return ""
}

// bufferedWriter holds the status and body until the handler returns
type bufferedWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferedWriter) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	return b.body.Write(p)
}
