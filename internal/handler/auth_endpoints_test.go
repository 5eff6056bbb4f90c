package handler_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatty-server/internal/models"
)

func TestRegisterEndpoint(t *testing.T) {
	env := newTestEnv(t)

	user := env.register(t, "alice", "Secret123!")
	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, user.Avatar)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	csrf := env.csrfToken(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"short username", "ab", "Secret123!"},
		{"bad username characters", "al ice!", "Secret123!"},
		{"short password", "alice", "Ab1"},
		{"password without digits", "alice", "OnlyLetters"},
		{"password without letters", "alice", "1234567890"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/auth/register", csrf, gin.H{
				"username": tt.username,
				"password": tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeBody[models.ErrorResponse](t, resp)
			assert.Equal(t, models.ErrCodeValidation, body.Code)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Secret123!")

	csrf := env.csrfToken(t)
	resp := env.do(t, http.MethodPost, "/auth/register", csrf, gin.H{
		"username": "alice",
		"password": "Another123!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decodeBody[models.ErrorResponse](t, resp)
	assert.Equal(t, models.ErrCodeDuplicateUser, body.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Secret123!")

	csrf := env.csrfToken(t)
	resp := env.do(t, http.MethodPost, "/auth/login", csrf, gin.H{
		"username": "alice",
		"password": "Secret123!",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "Authentication" {
			session = c
		}
	}
	require.NotNil(t, session, "Authentication cookie not set")
	assert.NotEmpty(t, session.Value)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, "/", session.Path)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)
	assert.Greater(t, session.MaxAge, 0)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Secret123!")
	admin := env.registerAdmin(t, "root", "Root12345!")

	// Ban a user to cover the banned case.
	banned := true
	require.NoError(t, env.userRepo.UpdateUserFields(t.Context(), admin.ID, nil, nil, &banned))

	csrf := env.csrfToken(t)
	readBody := func(username, password string) (int, string) {
		resp := env.do(t, http.MethodPost, "/auth/login", csrf, gin.H{
			"username": username,
			"password": password,
		})
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(data)
	}

	unknownStatus, unknownBody := readBody("nobody", "Secret123!")
	wrongStatus, wrongBody := readBody("alice", "WrongPass1!")
	bannedStatus, bannedBody := readBody("root", "Root12345!")

	// Unknown user, wrong password and banned account: one status, one body.
	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.Equal(t, unknownStatus, wrongStatus)
	assert.Equal(t, unknownStatus, bannedStatus)
	assert.Equal(t, unknownBody, wrongBody)
	assert.Equal(t, unknownBody, bannedBody)
}

func TestProfileRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/auth/profile")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProfileAfterLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Secret123!")
	env.login(t, "alice", "Secret123!")

	resp, err := env.client.Get(env.server.URL + "/auth/profile")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decodeBody[*models.PublicUser](t, resp)
	assert.Equal(t, "alice", profile.Username)
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "Secret123!")
	env.login(t, "alice", "Secret123!")

	csrf := env.csrfToken(t)
	resp := env.do(t, http.MethodPost, "/auth/logout", csrf, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	after, err := env.client.Get(env.server.URL + "/auth/profile")
	require.NoError(t, err)
	defer after.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
}

func TestBanRevokesActiveSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice", "Secret123!")
	env.login(t, "alice", "Secret123!")

	// The session works before the ban.
	before, err := env.client.Get(env.server.URL + "/auth/profile")
	require.NoError(t, err)
	before.Body.Close()
	require.Equal(t, http.StatusOK, before.StatusCode)

	banned := true
	require.NoError(t, env.userRepo.UpdateUserFields(t.Context(), user.ID, nil, nil, &banned))

	// The cookie is unexpired, but validation re-checks the ban flag.
	after, err := env.client.Get(env.server.URL + "/auth/profile")
	require.NoError(t, err)
	defer after.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, after.StatusCode)
}
