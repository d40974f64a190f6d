package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/ignite/leadpage/internal/pkg/httputil"
)

// OwnerHeader carries the account a request acts for. It is set by the
// gateway in front of this service after authentication.
const OwnerHeader = "X-Owner-ID"

type ownerContextKey struct{}

// OwnerResolver extracts the owner of each API request.
type OwnerResolver struct {
	devMode    bool
	devOwnerID string
}

// NewOwnerResolver creates a resolver. In dev mode requests without the
// header act as devOwnerID.
func NewOwnerResolver(devMode bool, devOwnerID string) *OwnerResolver {
	if devOwnerID == "" {
		devOwnerID = "dev-owner"
	}
	return &OwnerResolver{devMode: devMode, devOwnerID: devOwnerID}
}

// ExtractOwnerID returns the owner for r, or "" when none was supplied.
func (p *OwnerResolver) ExtractOwnerID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(OwnerHeader)); id != "" {
		return id
	}
	if p.devMode {
		return p.devOwnerID
	}
	return ""
}

// Middleware rejects requests without an owner and stores it in the context.
func (p *OwnerResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := p.ExtractOwnerID(r)
		if owner == "" {
			httputil.Error(w, http.StatusUnauthorized, "missing "+OwnerHeader)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerContextKey{}, owner)))
	})
}

// OwnerFromContext returns the owner stored by Middleware.
func OwnerFromContext(ctx context.Context) string {
	owner, _ := ctx.Value(ownerContextKey{}).(string)
	return owner
}
