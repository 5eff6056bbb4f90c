package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"chatty-server/internal/config"
	"chatty-server/internal/handler"
	"chatty-server/internal/models"
	"chatty-server/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memUserRepo is an in-memory UserRepository.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return models.ErrUserAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *memUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) ListUsers(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memUserRepo) UpdateUserFields(_ context.Context, userID uuid.UUID, avatar *string, role *string, isBanned *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	if avatar != nil {
		u.Avatar = *avatar
	}
	if role != nil {
		u.Role = *role
	}
	if isBanned != nil {
		u.IsBanned = *isBanned
	}
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepo) UpdatePasswordHash(_ context.Context, userID uuid.UUID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	return nil
}

// memMessageRepo is an in-memory MessageRepository. It hydrates authors from
// the user repo the same way the SQL join does.
type memMessageRepo struct {
	mu       sync.Mutex
	messages []models.Message
	users    *memUserRepo
}

func newMemMessageRepo(users *memUserRepo) *memMessageRepo {
	return &memMessageRepo{users: users}
}

func (r *memMessageRepo) hydrate(msg models.Message) models.Message {
	if u, err := r.users.GetUserByID(context.Background(), msg.AuthorID); err == nil {
		msg.Author = u.Public()
	}
	return msg
}

func (r *memMessageRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	clone := *msg
	r.messages = append(r.messages, clone)
	return nil
}

func (r *memMessageRepo) GetMessageByID(_ context.Context, id uuid.UUID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			hydrated := r.hydrate(m)
			return &hydrated, nil
		}
	}
	return nil, models.ErrMessageNotFound
}

func (r *memMessageRepo) ListMessages(_ context.Context, filter models.MessageFilter) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Message, 0, len(r.messages))
	for _, m := range r.messages {
		if filter.Search != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Priority != "" && m.Priority != filter.Priority {
			continue
		}
		out = append(out, r.hydrate(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memMessageRepo) DeleteMessage(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == id {
			r.messages = append(r.messages[:i], r.messages[i+1:]...)
			return nil
		}
	}
	return models.ErrMessageNotFound
}

func (r *memMessageRepo) GetUserStats(_ context.Context, userID uuid.UUID) (*models.UserStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.UserStats{UserID: userID}
	for _, m := range r.messages {
		if m.AuthorID != userID {
			continue
		}
		t := m.CreatedAt
		stats.MessageCount++
		if stats.FirstMessage == nil || t.Before(*stats.FirstMessage) {
			first := t
			stats.FirstMessage = &first
		}
		if stats.LastMessage == nil || t.After(*stats.LastMessage) {
			last := t
			stats.LastMessage = &last
		}
	}
	return stats, nil
}

// recordingBroadcaster captures broadcast messages for assertions.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (b *recordingBroadcaster) BroadcastNewMessage(msg *models.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msg)
}

func (b *recordingBroadcaster) all() []*models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*models.Message(nil), b.messages...)
}

// testEnv bundles a running server, a cookie-aware client and the fakes.
type testEnv struct {
	server      *httptest.Server
	client      *http.Client
	userRepo    *memUserRepo
	messageRepo *memMessageRepo
	broadcaster *recordingBroadcaster
	userService service.UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{
		JWTSecret:      "handler-test-secret",
		PasswordPepper: "handler-test-pepper",
		SessionTTL:     time.Hour,
		CookieSameSite: "strict",
	}
	logger := zap.NewNop()

	userRepo := newMemUserRepo()
	messageRepo := newMemMessageRepo(userRepo)
	broadcaster := &recordingBroadcaster{}

	authService := service.NewAuthService(userRepo, cfg, logger)
	userService := service.NewUserService(userRepo, messageRepo, cfg, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, broadcaster, logger)

	router := gin.New()
	h := handler.New(authService, userService, messageService, nil, cfg, logger)
	h.RegisterRoutes(router, nil)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:      server,
		client:      &http.Client{Jar: jar},
		userRepo:    userRepo,
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		userService: userService,
	}
}

// csrfToken fetches (and caches via the jar) the CSRF token.
func (e *testEnv) csrfToken(t *testing.T) string {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + "/auth/csrf-token")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		CsrfToken string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.CsrfToken)
	return body.CsrfToken
}

// do sends a JSON request with the given CSRF header value.
func (e *testEnv) do(t *testing.T, method, path, csrf string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if csrf != "" {
		req.Header.Set("X-XSRF-TOKEN", csrf)
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// register creates a user through the API and returns its public form.
func (e *testEnv) register(t *testing.T, username, password string) *models.PublicUser {
	t.Helper()
	csrf := e.csrfToken(t)
	resp := e.do(t, http.MethodPost, "/auth/register", csrf, gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decodeBody[*models.PublicUser](t, resp)
	return user
}

// login authenticates through the API; the session cookie lands in the jar.
func (e *testEnv) login(t *testing.T, username, password string) *models.PublicUser {
	t.Helper()
	csrf := e.csrfToken(t)
	resp := e.do(t, http.MethodPost, "/auth/login", csrf, gin.H{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[*models.PublicUser](t, resp)
}

// registerAdmin creates an admin directly through the service layer.
func (e *testEnv) registerAdmin(t *testing.T, username, password string) *models.User {
	t.Helper()
	admin, err := e.userService.CreateUser(context.Background(), username, password, "", models.RoleAdmin)
	require.NoError(t, err)
	return admin
}
