package httptransport_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/zhanatb/linguabook/internal/domain"
	"github.com/zhanatb/linguabook/internal/health"
	"github.com/zhanatb/linguabook/internal/password"
	"github.com/zhanatb/linguabook/internal/token"
	httptransport "github.com/zhanatb/linguabook/internal/transport/http"
	"github.com/zhanatb/linguabook/internal/transport/http/handler"
	"github.com/zhanatb/linguabook/internal/usecase"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryUserRepo enforces email uniqueness the way the database index would,
// so the register flows behave as in production.
type memoryUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
	byID    map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[string]*domain.User),
	}
}

func (r *memoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *memoryUserRepo) Create(_ context.Context, email, passwordHash string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[email]; ok {
		return nil, domain.ErrDuplicateEmail
	}
	u := &domain.User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash}
	r.byEmail[email] = u
	r.byID[u.ID] = u
	return u, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

const e2eKey = "router-test-secret-at-least-32-ch!!"

func newServer() (*gin.Engine, *token.Issuer) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	issuer := token.NewIssuer([]byte(e2eKey))
	auth := usecase.NewAuthUsecase(newMemoryUserRepo(), password.NewHasher(bcrypt.MinCost), issuer)
	checker := health.NewChecker(okPinger{}, logger, prometheus.NewRegistry())
	return httptransport.NewRouter(logger, handler.NewAuthHandler(auth, logger), issuer, checker), issuer
}

func doJSON(r *gin.Engine, method, path, body, bearer string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	r.ServeHTTP(w, req)
	return w
}

type authPayload struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// Walks the whole happy and unhappy path in one sitting: register, duplicate
// register, bad login, gated route with and without the token.
func TestAuthFlow_EndToEnd(t *testing.T) {
	r, issuer := newServer()

	// Register.
	w := doJSON(r, http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@x.com","password":"hunter2"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var reg authPayload
	if err := json.Unmarshal(w.Body.Bytes(), &reg); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if reg.User.Email != "a@x.com" || reg.Token == "" {
		t.Fatalf("register response = %+v", reg)
	}

	// The token must decode to the new user's ID.
	sub, err := issuer.Verify(reg.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if sub != reg.User.ID {
		t.Errorf("token subject = %q, want user id %q", sub, reg.User.ID)
	}

	// Second register with the same email.
	w = doJSON(r, http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@x.com","password":"different1"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Email already exists") {
		t.Errorf("duplicate register body = %s", w.Body.String())
	}

	// Wrong password.
	w = doJSON(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"a@x.com","password":"wrongpass"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", w.Code)
	}

	// Protected route without a token.
	w = doJSON(r, http.MethodGet, "/api/v1/me", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated /me status = %d, want 401", w.Code)
	}

	// Protected route with the registration token.
	w = doJSON(r, http.MethodGet, "/api/v1/me", "", reg.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("authenticated /me status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("unmarshal /me response: %v", err)
	}
	if me.ID != reg.User.ID || me.Email != "a@x.com" {
		t.Errorf("/me = %+v, want id %s", me, reg.User.ID)
	}
}

// Unknown email and wrong password must be indistinguishable on the wire.
func TestLogin_EnumerationResistance(t *testing.T) {
	r, _ := newServer()

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register",
		`{"email":"a@x.com","password":"hunter2"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d", w.Code)
	}

	unknown := doJSON(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"nobody@x.com","password":"hunter2"}`, "")
	wrong := doJSON(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"a@x.com","password":"wrongpass"}`, "")

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401 / 401", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("bodies differ (%q vs %q); email enumeration is possible",
			unknown.Body.String(), wrong.Body.String())
	}
}

func TestRegisterThenLogin_SameSubject(t *testing.T) {
	r, issuer := newServer()

	w := doJSON(r, http.MethodPost, "/api/v1/auth/register",
		`{"email":"b@x.com","password":"hunter2"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d", w.Code)
	}
	var reg authPayload
	if err := json.Unmarshal(w.Body.Bytes(), &reg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	w = doJSON(r, http.MethodPost, "/api/v1/auth/login",
		`{"email":"b@x.com","password":"hunter2"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var login authPayload
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	regSub, err := issuer.Verify(reg.Token)
	if err != nil {
		t.Fatalf("verify register token: %v", err)
	}
	loginSub, err := issuer.Verify(login.Token)
	if err != nil {
		t.Fatalf("verify login token: %v", err)
	}
	if regSub != loginSub {
		t.Errorf("subjects differ: %q vs %q", regSub, loginSub)
	}
}

func TestHealth_Returns200WhenDBUp(t *testing.T) {
	r, _ := newServer()

	w := doJSON(r, http.MethodGet, "/api/v1/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"postgres"`) {
		t.Errorf("health body = %s", w.Body.String())
	}
}

func TestUnknownRoute_ReturnsJSON404(t *testing.T) {
	r, _ := newServer()

	w := doJSON(r, http.MethodGet, "/api/v1/nope", "", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Endpoint not found") {
		t.Errorf("body = %s", w.Body.String())
	}
}
