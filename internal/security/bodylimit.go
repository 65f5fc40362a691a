package security

import (
	"net/http"

	"github.com/noah-isme/pos-pricing/internal/common"
)

// BodyLimit caps quote payloads. Declared oversize bodies are refused up front; bodies
// without a length are cut off while decoding, where common.DecodeJSON reports
// common.ErrBodyTooLarge.
type BodyLimit struct {
	Max int64
}

// Middleware wraps the request body in an http.MaxBytesReader.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", common.ErrBodyTooLarge.Error(), nil)
			return
		}
		if r.Body != nil && r.Body != http.NoBody {
			r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		}
		next.ServeHTTP(w, r)
	})
}
