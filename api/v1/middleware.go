package v1

import (
	"context"
	"net/http"
	"time"
)

// MiddlewareSourceValidation decodes and validates the registration body
// before the handler runs.
func MiddlewareSourceValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := &registerBody{}
		if err := decodeJSONStrict(w, r, body, 1<<20); err != nil {
			markErr(w, err)
			if err == ErrContentType {
				http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		if body.Name == "" {
			markErr(w, ErrNameJSON)
			http.Error(w, ErrNameJSON.Error(), http.StatusBadRequest)
			return
		}
		if body.Interval < 0 {
			markErr(w, ErrIntervalJSON)
			http.Error(w, ErrIntervalJSON.Error(), http.StatusBadRequest)
			return
		}
		if len(body.ConfigData) == 0 {
			markErr(w, ErrConfigJSON)
			http.Error(w, ErrConfigJSON.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyRegister{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewarePatchInterval decodes the interval patch body.
func MiddlewarePatchInterval(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body patchBody
		if err := decodeJSONStrict(w, r, &body, 1<<20); err != nil {
			markErr(w, err)
			if err == ErrContentType {
				http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
				return
			}
			http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}

		if body.Interval <= 0 {
			markErr(w, ErrIntervalJSON)
			http.Error(w, ErrIntervalJSON.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPatch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Log records every request with its outcome and latency.
func (h *SourceHandler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		timeElapsed := time.Since(startTime)
		if rw.err != nil {
			h.l.Error(rw.err.Error(),
				"method", r.Method,
				"url", r.URL.Path,
				"status", rw.status,
				"remote", r.RemoteAddr,
				"dur_ms", timeElapsed.Milliseconds(),
				"bytes", rw.bytes)
			return
		}

		h.l.Info("", "method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"dur_ms", timeElapsed.Milliseconds(),
			"bytes", rw.bytes)
	})
}
