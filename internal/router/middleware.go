package router

import (
	"compress/gzip"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// withRequestID tags every request with an id so log lines can be correlated.
// An id supplied by the client is kept.
func withRequestID(h http.Handler) http.Handler {
	middleware := func(res http.ResponseWriter, req *http.Request) {
		id := req.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
			req.Header.Set(requestIDHeader, id)
		}
		res.Header().Set(requestIDHeader, id)

		h.ServeHTTP(res, req)
	}

	return http.HandlerFunc(middleware)
}

// withCORS allows any origin, matching the openness of the original API.
func withCORS(h http.Handler) http.Handler {
	middleware := func(res http.ResponseWriter, req *http.Request) {
		res.Header().Set("Access-Control-Allow-Origin", "*")
		res.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		res.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if req.Method == http.MethodOptions {
			res.WriteHeader(http.StatusNoContent)

			return
		}

		h.ServeHTTP(res, req)
	}

	return http.HandlerFunc(middleware)
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type gzippedResponseWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func (g *gzippedResponseWriter) Write(p []byte) (int, error) {
	return g.zw.Write(p)
}

// withGzippedResponse compresses response bodies for clients that accept it.
func withGzippedResponse(h http.Handler) http.Handler {
	middleware := func(res http.ResponseWriter, req *http.Request) {
		if !strings.Contains(req.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(res, req)

			return
		}

		zw := gzipWriterPool.Get().(*gzip.Writer)
		zw.Reset(res)
		defer func() {
			_ = zw.Close()
			gzipWriterPool.Put(zw)
		}()

		res.Header().Set("Content-Encoding", "gzip")

		h.ServeHTTP(&gzippedResponseWriter{ResponseWriter: res, zw: zw}, req)
	}

	return http.HandlerFunc(middleware)
}
