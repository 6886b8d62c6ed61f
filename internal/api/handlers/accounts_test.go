package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bomanihosts/backend/internal/api/middleware"
	"github.com/bomanihosts/backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerBody = `{
	"username": "kito",
	"email": "Kito@Example.com",
	"phone": "+255700000001",
	"password": "Kilimanjaro-Dawn-7",
	"password2": "Kilimanjaro-Dawn-7",
	"is_host": true
}`

func TestRegister_Success(t *testing.T) {
	repo := &memoryUsers{}
	h := NewAccountsHandler(newUsersService(t, repo), "test")

	w := postJSON(http.HandlerFunc(h.Register), "/api/auth/register/", registerBody)

	require.Equal(t, http.StatusCreated, w.Code)

	var raw map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	assert.Equal(t, float64(1), raw["id"])
	assert.Equal(t, "kito", raw["username"])
	assert.Equal(t, "kito@example.com", raw["email"])
	assert.Equal(t, "User registered successfully", raw["message"])
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "access")

	require.Len(t, repo.users, 1)
	assert.True(t, repo.users[0].IsHost)
	assert.NotEqual(t, "Kilimanjaro-Dawn-7", repo.users[0].PasswordHash)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	repo := &memoryUsers{}
	h := NewAccountsHandler(newUsersService(t, repo), "test")
	handler := http.HandlerFunc(h.Register)

	require.Equal(t, http.StatusCreated, postJSON(handler, "/api/auth/register/", registerBody).Code)

	w := postJSON(handler, "/api/auth/register/", `{
		"username": "kito2",
		"email": "KITO@example.com",
		"password": "Kilimanjaro-Dawn-7"
	}`)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeProblem(t, w)
	assert.Equal(t, []string{"A user with that email already exists."}, body.Errors["email"])
	assert.NotContains(t, body.Errors, "username")
	assert.Len(t, repo.users, 1, "no second row")
}

func TestRegister_BothConflicts(t *testing.T) {
	repo := &memoryUsers{}
	h := NewAccountsHandler(newUsersService(t, repo), "test")
	handler := http.HandlerFunc(h.Register)

	require.Equal(t, http.StatusCreated, postJSON(handler, "/api/auth/register/", registerBody).Code)
	w := postJSON(handler, "/api/auth/register/", registerBody)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeProblem(t, w)
	assert.Contains(t, body.Errors, "email")
	assert.Contains(t, body.Errors, "username")
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing username", body: `{"email":"a@example.com","password":"Kilimanjaro-Dawn-7"}`, field: "username"},
		{name: "bad username characters", body: `{"username":"no spaces","email":"a@example.com","password":"Kilimanjaro-Dawn-7"}`, field: "username"},
		{name: "invalid email", body: `{"username":"kito","email":"nope","password":"Kilimanjaro-Dawn-7"}`, field: "email"},
		{name: "short password", body: `{"username":"kito","email":"a@example.com","password":"abc"}`, field: "password"},
		{name: "numeric password", body: `{"username":"kito","email":"a@example.com","password":"12345678901"}`, field: "password"},
		{name: "mismatched confirmation", body: `{"username":"kito","email":"a@example.com","password":"Kilimanjaro-Dawn-7","password2":"other-thing-9"}`, field: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memoryUsers{}
			h := NewAccountsHandler(newUsersService(t, repo), "test")

			w := postJSON(http.HandlerFunc(h.Register), "/api/auth/register/", tt.body)

			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			body := decodeProblem(t, w)
			assert.Contains(t, body.Errors, tt.field)
			assert.Empty(t, repo.users)
		})
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	h := NewAccountsHandler(newUsersService(t, &failingUsers{}), "production")

	w := postJSON(http.HandlerFunc(h.Register), "/api/auth/register/", registerBody)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeProblem(t, w)
	assert.NotContains(t, body.Detail, "connection reset")
}

func TestMe(t *testing.T) {
	repo := &memoryUsers{}
	svc := newUsersService(t, repo)
	tokens := newTestJWT()
	h := NewAccountsHandler(svc, "test")
	handler := middleware.RequireAuth(tokens, "test")(http.HandlerFunc(h.Me))

	require.Equal(t, http.StatusCreated, postJSON(http.HandlerFunc(h.Register), "/api/auth/register/", registerBody).Code)
	access, err := tokens.Generate(1, "kito", auth.TokenAccess)
	require.NoError(t, err)

	get := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	w := get("Bearer " + access)
	require.Equal(t, http.StatusOK, w.Code)

	var me map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&me))
	assert.Equal(t, float64(1), me["id"])
	assert.Equal(t, "kito", me["username"])
	assert.Equal(t, "kito@example.com", me["email"])
	assert.Equal(t, "+255700000001", me["phone"])
	assert.Equal(t, true, me["is_host"])
	assert.NotEmpty(t, me["created_at"])
	assert.NotEmpty(t, me["updated_at"])
	assert.NotContains(t, me, "password_hash")

	assert.Equal(t, http.StatusUnauthorized, get("").Code)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer nonsense").Code)

	repo.remove(1)
	assert.Equal(t, http.StatusUnauthorized, get("Bearer "+access).Code, "deleted account")
}

func TestMe_WithoutPrincipal(t *testing.T) {
	h := NewAccountsHandler(newUsersService(t, &memoryUsers{}), "test")

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/auth/me/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
