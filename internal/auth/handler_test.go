package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/estateman/estateman/internal/authz"
	"github.com/estateman/estateman/internal/shared"
	_ "github.com/estateman/estateman/testing"
)

type memoryUserRepo struct {
	users  map[int64]*User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User)}
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	for _, user := range r.users {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user User) (*User, error) {
	if existing, _ := r.FindByEmail(ctx, user.Email); existing != nil {
		return nil, ErrEmailTaken
	}
	r.nextID++
	user.ID = r.nextID
	user.IsActive = true
	stored := user
	r.users[user.ID] = &stored
	return &user, nil
}

type noopInvalidator struct {
	invalidated []int64
}

func (n *noopInvalidator) Invalidate(ctx context.Context, userID int64) error {
	n.invalidated = append(n.invalidated, userID)
	return nil
}

type staticSource struct {
	snapshot authz.Snapshot
}

func (s staticSource) Snapshot(ctx context.Context, userID int64) (authz.Snapshot, error) {
	return s.snapshot, nil
}

// sessionCommitWriter commits the session before the first header write,
// mirroring the production session middleware in internal/app.
type sessionCommitWriter struct {
	http.ResponseWriter
	commit        func()
	headerWritten bool
}

func (w *sessionCommitWriter) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		w.commit()
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *sessionCommitWriter) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

type authFixture struct {
	handler     *Handler
	repo        *memoryUserRepo
	sessions    *shared.SessionManager
	invalidator *noopInvalidator
	router      chi.Router
}

func newAuthFixture(t *testing.T, source authz.SnapshotSource) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryUserRepo()
	sessions := shared.NewSessionManager(client, "estateman_session", "test-secret", time.Hour, false)
	invalidator := &noopInvalidator{}
	handler := NewHandler(
		slog.Default(),
		NewService(repo),
		sessions,
		shared.NewCSRFManager("csrf-secret"),
		invalidator,
		authz.Middleware{Source: source, Logger: slog.Default()},
	)

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r.Context(), r)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(r.Context(), sess)
			cw := &sessionCommitWriter{ResponseWriter: w, commit: func() {
				require.NoError(t, sessions.Commit(ctx, w, r, sess))
			}}
			next.ServeHTTP(cw, r.WithContext(ctx))
			if !cw.headerWritten {
				cw.headerWritten = true
				cw.commit()
			}
		})
	})
	router.Route("/auth", handler.MountRoutes)

	return &authFixture{handler: handler, repo: repo, sessions: sessions, invalidator: invalidator, router: router}
}

func seedUser(t *testing.T, repo *memoryUserRepo, email, password, role string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := repo.Create(context.Background(), User{
		Email:        email,
		FullName:     "Morgan Reyes",
		PasswordHash: string(hash),
		RoleName:     role,
	})
	require.NoError(t, err)
	repo.users[user.ID].RoleName = role
	return user
}

func TestLoginSuccess(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})
	user := seedUser(t, fx.repo, "morgan@estateman.dev", "hunter2-secure", "realtor")

	body := `{"email":"morgan@estateman.dev","password":"hunter2-secure"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, user.ID, resp.UserID)
	require.Equal(t, "realtor", resp.Role)
	require.NotEmpty(t, resp.CSRFToken)
	require.Contains(t, fx.invalidator.invalidated, user.ID)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, "estateman_session", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestLoginBadPassword(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})
	seedUser(t, fx.repo, "morgan@estateman.dev", "hunter2-secure", "realtor")

	body := `{"email":"morgan@estateman.dev","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})

	body := `{"email":"nobody@estateman.dev","password":"whatever123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid email or password")
}

func TestLoginValidation(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeReturnsRoleAndPermissions(t *testing.T) {
	source := staticSource{snapshot: authz.NewSnapshot(1, authz.RoleRealtor, []string{"properties:read", "payments:read"})}
	fx := newAuthFixture(t, source)
	seedUser(t, fx.repo, "morgan@estateman.dev", "hunter2-secure", "realtor")

	// Log in to obtain a session cookie.
	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"morgan@estateman.dev","password":"hunter2-secure"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	fx.router.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)

	meReq := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	for _, cookie := range loginRec.Result().Cookies() {
		meReq.AddCookie(cookie)
	}
	meRec := httptest.NewRecorder()
	fx.router.ServeHTTP(meRec, meReq)

	require.Equal(t, http.StatusOK, meRec.Code)
	var resp meResponse
	require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &resp))
	require.Equal(t, "morgan@estateman.dev", resp.Email)
	require.Equal(t, "realtor", resp.Role)
	require.Equal(t, []string{"payments:read", "properties:read"}, resp.Permissions)
}

func TestMeRedirectsAnonymous(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/auth/login?next=%2Fauth%2Fme", rec.Header().Get("Location"))
}

func TestLogoutDestroysSession(t *testing.T) {
	fx := newAuthFixture(t, staticSource{})
	user := seedUser(t, fx.repo, "morgan@estateman.dev", "hunter2-secure", "realtor")

	loginReq := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"morgan@estateman.dev","password":"hunter2-secure"}`))
	loginReq.Header.Set("Content-Type", "application/json")
	loginRec := httptest.NewRecorder()
	fx.router.ServeHTTP(loginRec, loginReq)
	require.Equal(t, http.StatusOK, loginRec.Code)

	logoutReq := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, cookie := range loginRec.Result().Cookies() {
		logoutReq.AddCookie(cookie)
	}
	logoutRec := httptest.NewRecorder()
	fx.router.ServeHTTP(logoutRec, logoutReq)

	require.Equal(t, http.StatusOK, logoutRec.Code)
	require.Contains(t, fx.invalidator.invalidated, user.ID)

	// The session cookie is cleared on the way out.
	var cleared bool
	for _, cookie := range logoutRec.Result().Cookies() {
		if cookie.Name == "estateman_session" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared)
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newMemoryUserRepo()
	svc := NewService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "New@Estateman.Dev",
		FullName: "  Jordan Blake ",
		Password: "long-enough-pass",
	})
	require.NoError(t, err)
	require.Equal(t, "new@estateman.dev", user.Email)
	require.Equal(t, "Jordan Blake", user.FullName)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("long-enough-pass")))

	_, err = svc.Register(context.Background(), RegisterInput{Email: "new@estateman.dev", Password: "long-enough-pass"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "short@estateman.dev", Password: "short"})
	require.Error(t, err)
}
