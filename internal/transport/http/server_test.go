package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"postboard/internal/app"
	"postboard/internal/app/apptest"
	httptransport "postboard/internal/transport/http"
)

type testServer struct {
	router *gin.Engine
	users  *apptest.Users
	tokens *apptest.Tokens
	posts  *apptest.Posts
}

func newTestServer(t *testing.T, prefix string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := apptest.NewUsers()
	tokens := apptest.NewTokens()
	posts := apptest.NewPosts(users)
	tokenService := app.NewTokenService(tokens, users, 0)

	router := httptransport.NewEngine(httptransport.Services{
		Auth:        app.NewAuthService(users, tokenService, bcrypt.MinCost),
		Tokens:      tokenService,
		Posts:       app.NewPostService(posts),
		RoutePrefix: prefix,
	})
	return &testServer{router: router, users: users, tokens: tokens, posts: posts}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) registerAndLogin(t *testing.T, name, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/register", "", gin.H{"name": name, "email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type postJSON struct {
	ID     uint   `json:"id"`
	UserID uint   `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   *struct {
		ID    uint   `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type validationJSON struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

func TestWalkthrough(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/register", "", gin.H{"name": "Jo", "email": "jo@b.com", "password": "secret1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[validationJSON](t, w)
	assert.Equal(t, "The name field must be at least 3 characters.", verr.Message)
	assert.Contains(t, verr.Errors, "name")

	w = s.do(t, http.MethodPost, "/register", "", gin.H{"name": "John", "email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", "", gin.H{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	login := decode[struct {
		Message string `json:"message"`
		Token   string `json:"token"`
	}](t, w)
	assert.Equal(t, "Login successful", login.Message)
	require.NotEmpty(t, login.Token)

	w = s.do(t, http.MethodGet, "/posts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodPost, "/posts", login.Token, gin.H{"title": "Hi", "body": "World"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		Message string   `json:"message"`
		Post    postJSON `json:"post"`
	}](t, w)
	assert.Equal(t, "Post created successfully", created.Message)
	require.NotNil(t, created.Post.User)
	assert.Equal(t, "a@b.com", created.Post.User.Email)

	w = s.do(t, http.MethodGet, "/posts/public", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[[]postJSON](t, w)
	require.Len(t, listed, 1)
	assert.Equal(t, "a@b.com", listed[0].User.Email)

	w = s.do(t, http.MethodGet, "/user", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	me := decode[struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}](t, w)
	assert.Equal(t, "John", me.Name)
	assert.Equal(t, "a@b.com", me.Email)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, "")
	token := s.registerAndLogin(t, "John", "a@b.com")
	w := s.do(t, http.MethodPost, "/posts", token, gin.H{"title": "Hi", "body": "World"})
	require.Equal(t, http.StatusCreated, w.Code)

	cases := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/posts", gin.H{"title": "x", "body": "y"}},
		{http.MethodPut, "/posts/1", gin.H{"title": "x", "body": "y"}},
		{http.MethodPatch, "/posts/1", gin.H{"title": "x", "body": "y"}},
		{http.MethodDelete, "/posts/1", nil},
		{http.MethodGet, "/user", nil},
		{http.MethodPost, "/logout", nil},
	}
	for _, tc := range cases {
		for _, bad := range []string{"", "1|not-the-secret", "garbage"} {
			w := s.do(t, tc.method, tc.path, bad, tc.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s token=%q", tc.method, tc.path, bad)
			assert.JSONEq(t, `{"message":"Unauthenticated."}`, w.Body.String())
		}
	}

	assert.Equal(t, 1, s.posts.Count())
	assert.Equal(t, 1, s.tokens.Count())
	w = s.do(t, http.MethodGet, "/posts/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hi", decode[postJSON](t, w).Title)
}

func TestLogoutRevokesOnlyPresentedToken(t *testing.T) {
	s := newTestServer(t, "")
	first := s.registerAndLogin(t, "John", "a@b.com")

	w := s.do(t, http.MethodPost, "/login", "", gin.H{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[struct {
		Token string `json:"token"`
	}](t, w).Token

	w = s.do(t, http.MethodPost, "/logout", first, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Logged out successfully"}`, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/user", first, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/logout", first, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/user", second, nil).Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := newTestServer(t, "")
	s.registerAndLogin(t, "John", "a@b.com")

	for _, body := range []gin.H{
		{"email": "a@b.com", "password": "wrong-one"},
		{"email": "ghost@b.com", "password": "secret1"},
	} {
		w := s.do(t, http.MethodPost, "/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"Invalid credentials"}`, w.Body.String())
	}
}

func TestRegisterValidationResponses(t *testing.T) {
	s := newTestServer(t, "")
	s.registerAndLogin(t, "John", "a@b.com")

	w := s.do(t, http.MethodPost, "/register", "", gin.H{"name": "Jo", "email": "a@b.com", "password": "1"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[validationJSON](t, w)
	assert.Contains(t, verr.Errors["email"], "The email has already been taken.")
	assert.Contains(t, verr.Errors, "name")
	assert.Contains(t, verr.Errors, "password")

	w = s.do(t, http.MethodPost, "/register", "", gin.H{"name": "Jane", "email": "A@b.com", "password": "secret2"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "The email has already been taken.", decode[validationJSON](t, w).Message)

	w = s.do(t, http.MethodPost, "/register", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr = decode[validationJSON](t, w)
	assert.Len(t, verr.Errors, 3)
	assert.Equal(t, "The name field is required.", verr.Message)

	w = s.do(t, http.MethodPost, "/register", "", `{"name":`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[validationJSON](t, w).Errors, "request")

	assert.Equal(t, 1, s.users.Count())
}

func TestPostValidationAndNotFound(t *testing.T) {
	s := newTestServer(t, "")
	token := s.registerAndLogin(t, "John", "a@b.com")

	w := s.do(t, http.MethodPost, "/posts", token, gin.H{"title": strings.Repeat("x", 256)})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[validationJSON](t, w)
	assert.Contains(t, verr.Errors, "title")
	assert.Contains(t, verr.Errors, "body")

	for _, path := range []string{"/posts/99", "/posts/abc", "/posts/0"} {
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, "", nil).Code, path)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, path, token, gin.H{"title": "x", "body": "y"}).Code, path)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, path, token, nil).Code, path)
	}
	w = s.do(t, http.MethodGet, "/posts/99", "", nil)
	assert.JSONEq(t, `{"message":"Post not found"}`, w.Body.String())

	w = s.do(t, http.MethodPost, "/posts", token, gin.H{"title": "ok", "body": "ok"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPut, "/posts/1", token, gin.H{"title": "", "body": "y"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// Any authenticated user may edit or delete any post. This documents the
// current behavior rather than endorsing it.
func TestNonOwnerMayMutatePost(t *testing.T) {
	s := newTestServer(t, "")
	alice := s.registerAndLogin(t, "Alice", "alice@b.com")
	bob := s.registerAndLogin(t, "Bob", "bob@b.com")

	w := s.do(t, http.MethodPost, "/posts", alice, gin.H{"title": "Mine", "body": "hands off"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[struct {
		Post postJSON `json:"post"`
	}](t, w).Post.ID

	w = s.do(t, http.MethodPatch, "/posts/"+strconv.FormatUint(uint64(id), 10), bob, gin.H{"title": "Bob's now", "body": "edited"})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[struct {
		Message string   `json:"message"`
		Post    postJSON `json:"post"`
	}](t, w)
	assert.Equal(t, "Post updated successfully", updated.Message)
	assert.Equal(t, "Bob's now", updated.Post.Title)
	require.NotNil(t, updated.Post.User)
	assert.Equal(t, "alice@b.com", updated.Post.User.Email)

	w = s.do(t, http.MethodDelete, "/posts/"+strconv.FormatUint(uint64(id), 10), bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Post deleted successfully"}`, w.Body.String())
	assert.Equal(t, 0, s.posts.Count())
}

func TestListNewestFirst(t *testing.T) {
	s := newTestServer(t, "")
	token := s.registerAndLogin(t, "John", "a@b.com")
	for _, title := range []string{"first", "second", "third"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/posts", token, gin.H{"title": title, "body": "b"}).Code)
	}

	listed := decode[[]postJSON](t, s.do(t, http.MethodGet, "/posts", "", nil))
	require.Len(t, listed, 3)
	assert.Equal(t, []string{"third", "second", "first"}, []string{listed[0].Title, listed[1].Title, listed[2].Title})
}

func TestDocsAndPrefix(t *testing.T) {
	s := newTestServer(t, "/api")

	w := s.do(t, http.MethodGet, "/api/register", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[struct {
		Endpoint string `json:"endpoint"`
		Method   string `json:"method"`
	}](t, w)
	assert.Equal(t, "/api/register", doc.Endpoint)
	assert.Equal(t, http.MethodPost, doc.Method)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/logout", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/user", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/posts", "", nil).Code)
}

func TestInputIsTrimmedBeforeValidation(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodPost, "/register", "", gin.H{"name": "  John  ", "email": "  A@B.com ", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/login", "", gin.H{"email": " a@b.com\t", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[struct {
		Token string `json:"token"`
	}](t, w).Token

	me := decode[struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}](t, s.do(t, http.MethodGet, "/user", token, nil))
	assert.Equal(t, "John", me.Name)
	assert.Equal(t, "a@b.com", me.Email)

	title := strings.Repeat("x", 255)
	w = s.do(t, http.MethodPost, "/posts", token, gin.H{"title": "  " + title + "  ", "body": "\n body \n"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Post postJSON `json:"post"`
	}](t, w).Post
	assert.Equal(t, title, created.Title)
	assert.Equal(t, "body", created.Body)

	w = s.do(t, http.MethodPost, "/posts", token, gin.H{"title": "   ", "body": "b"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "The title field is required.", decode[validationJSON](t, w).Message)
}

func TestLoginDocDescribesPassword(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/login", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := decode[struct {
		RequiredFields map[string]string `json:"required_fields"`
	}](t, w)
	assert.Equal(t, "valid email address", doc.RequiredFields["email"])
	assert.Equal(t, "string (minimum 6 characters)", doc.RequiredFields["password"])
}
