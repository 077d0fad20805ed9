package guard

import (
	"crypto/subtle"
	"net/http"
)

// AdminKeyHeader carries the operator secret.
const AdminKeyHeader = "Admin-Key"

// AdminToken checks the shared operator secret. It is independent of user
// tokens and produces no principal.
type AdminToken struct {
	secret []byte
}

func NewAdminToken(secret string) *AdminToken {
	return &AdminToken{secret: []byte(secret)}
}

func (g *AdminToken) Name() string { return "admin_token" }

func (g *AdminToken) Check(r *http.Request) Outcome {
	key := r.Header.Get(AdminKeyHeader)
	if len(g.secret) == 0 || key == "" {
		return Forwarded(http.StatusUnauthorized, "admin key required")
	}
	if subtle.ConstantTimeCompare([]byte(key), g.secret) != 1 {
		return Forwarded(http.StatusUnauthorized, "admin key required")
	}
	return Allowed()
}
