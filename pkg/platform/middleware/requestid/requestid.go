// Package requestid assigns each request an identifier for log correlation.
// An inbound X-Request-Id is trusted if present; otherwise one is generated.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"vouch/pkg/requestcontext"
)

const Header = "X-Request-Id"

// Middleware stores the request ID in the context and echoes it on the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
