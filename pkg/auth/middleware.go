package auth

import (
	"net/http"
	"strings"

	"github.com/abgdnv/storefront/pkg/web"
)

// BearerMiddleware verifies the JWT in the Authorization header and puts its subject into the request
// context with web.WithUserID. Requests without a valid bearer token get 401.
func BearerMiddleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header is required", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Bearer token is required", http.StatusUnauthorized)
				return
			}

			token, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			subject, ok := token.Subject()
			if !ok {
				http.Error(w, "no claim `sub`", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(web.WithUserID(r.Context(), subject)))
		})
	}
}
