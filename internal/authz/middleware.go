package authz

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/estateman/estateman/internal/platform/httpx"
	"github.com/estateman/estateman/internal/shared"
)

// SnapshotSource resolves the current role/permission snapshot for a user.
// Implementations may cache; the middleware only ever reads.
type SnapshotSource interface {
	Snapshot(ctx context.Context, userID int64) (Snapshot, error)
}

// DefaultLoginPath is where unauthenticated requests are sent.
const DefaultLoginPath = "/auth/login"

type snapshotContextKey struct{}

// ContextWithSnapshot stores the resolved snapshot in context.
func ContextWithSnapshot(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotContextKey{}, snap)
}

// SnapshotFromContext extracts the snapshot placed by the middleware.
// The zero Snapshot (denies everything) is returned when absent.
func SnapshotFromContext(ctx context.Context) Snapshot {
	snap, _ := ctx.Value(snapshotContextKey{}).(Snapshot)
	return snap
}

// Middleware wires authorization gating for HTTP routes.
type Middleware struct {
	Source    SnapshotSource
	Logger    *slog.Logger
	LoginPath string
}

// RequireAuth admits only authenticated requests. Anonymous callers are
// redirected to the login entry point with the requested destination
// preserved for post-login return.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, ok := m.resolve(r)
		if !ok {
			m.redirectToLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
	})
}

// RequirePermissions gates a subtree on a permission list. With requireAll
// every permission must hold, otherwise any one suffices. An empty list means
// no restriction beyond authentication. Authenticated callers that fail the
// gate get a terminal 403, never a redirect.
func (m Middleware) RequirePermissions(requireAll bool, perms ...string) func(http.Handler) http.Handler {
	required := normalize(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := m.resolve(r)
			if !ok {
				m.redirectToLogin(w, r)
				return
			}
			if !snap.Allows(required, requireAll) {
				m.deny(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// RequireAny admits callers holding at least one of the permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.RequirePermissions(false, perms...)
}

// RequireAll admits callers holding every one of the permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.RequirePermissions(true, perms...)
}

// RequireRole gates a subtree on a role plus optional permissions. The role
// check runs first; only when it passes are the permissions evaluated, and
// then all of them must hold.
func (m Middleware) RequireRole(role Role, perms ...string) func(http.Handler) http.Handler {
	required := normalize(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap, ok := m.resolve(r)
			if !ok {
				m.redirectToLogin(w, r)
				return
			}
			if !snap.HasRole(role) {
				m.deny(w)
				return
			}
			if !snap.Allows(required, true) {
				m.deny(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithSnapshot(r.Context(), snap)))
		})
	}
}

// resolve loads the caller's snapshot. Missing or malformed identity data
// resolves to "not authenticated" rather than an error.
func (m Middleware) resolve(r *http.Request) (Snapshot, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return Snapshot{}, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return Snapshot{}, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz parse user id", slog.String("value", raw))
		}
		return Snapshot{}, false
	}
	if m.Source == nil {
		return Snapshot{}, false
	}
	snap, err := m.Source.Snapshot(r.Context(), userID)
	if err != nil {
		// Fail closed: an unreadable snapshot is treated as no access.
		if m.Logger != nil {
			m.Logger.Error("authz load snapshot", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return Snapshot{}, false
	}
	if !snap.Authenticated() {
		return Snapshot{}, false
	}
	return snap, true
}

func (m Middleware) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	loginPath := m.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	next := url.Values{"next": {r.URL.RequestURI()}}
	http.Redirect(w, r, loginPath+"?"+next.Encode(), http.StatusSeeOther)
}

func (m Middleware) deny(w http.ResponseWriter) {
	httpx.Problem(w, http.StatusForbidden, "Access Denied", "you do not have permission to access this resource")
}

func normalize(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
