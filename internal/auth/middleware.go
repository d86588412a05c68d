package auth

import (
	"net/http"
	"strings"

	"github.com/fekuna/vialtrack-service/internal/pkg/httpx"
)

var publicPaths = map[string]bool{
	"/api/health":      true,
	"/api/auth/signup": true,
	"/api/auth/login":  true,
}

func isPublicPath(path string) bool {
	return publicPaths[path]
}

// NewMiddleware authenticates every non-public request. A nil manager fails
// closed.
func NewMiddleware(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Allow public paths
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. Extract bearer token
			header := r.Header.Get("Authorization")
			if header == "" {
				httpx.WriteUnauthorized(w, r, "missing Authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				httpx.WriteUnauthorized(w, r, "expected 'Bearer <token>'")
				return
			}
			if tm == nil {
				httpx.WriteUnauthorized(w, r, "authentication not configured")
				return
			}

			// 3. Validate
			claims, err := tm.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				httpx.WriteUnauthorized(w, r, "invalid or expired token")
				return
			}
			if claims.Subject == "" || claims.AccountID == "" || !claims.Role.Valid() {
				httpx.WriteUnauthorized(w, r, "token is missing account binding")
				return
			}

			// 4. Inject caller
			ctx := WithUser(r.Context(), UserContext{
				AccountID: claims.AccountID,
				UserID:    claims.Subject,
				Role:      claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
