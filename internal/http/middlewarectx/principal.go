package middlewarectx

import (
	"context"
	"errors"

	"github.com/osoriolabs/lawdesk/internal/models"
)

// Key is the type for request context keys set by this package.
type Key string

const principalKey Key = "principal"

// ErrUnauthenticated is returned when no principal is present in the context.
var ErrUnauthenticated = errors.New("no authenticated principal in context")

// WithPrincipal stores the authenticated principal in the context.
// Only the JWT middleware calls this; handlers and services must treat
// the principal as read-only.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal.
func PrincipalFromContext(ctx context.Context) (models.Principal, error) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	if !ok || p.UID == "" {
		return models.Principal{}, ErrUnauthenticated
	}
	return p, nil
}
