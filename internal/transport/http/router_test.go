package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhub/internal/bootstrap"
	"taskhub/internal/config"
	"taskhub/internal/model"
	httptransport "taskhub/internal/transport/http"
)

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "_router?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Session{}, &model.Task{}))

	cfg := &config.Config{}
	cfg.App.Name = "taskhub-test"
	cfg.App.Env = "test"
	cfg.App.GinMode = gin.TestMode
	cfg.Auth.JWTSecret = "router-test-secret"

	app := &bootstrap.App{Config: cfg, DB: db}
	return &testServer{
		router: httptransport.NewRouter(app),
		db:     db,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type authBody struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

func (s *testServer) signup(t *testing.T, name, email, password string) authBody {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/users", "", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(4 * x), G: uint8(5 * y), B: 99, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func (s *testServer) uploadAvatar(t *testing.T, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/users/me/avatar", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestSignup(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/users", "", gin.H{
		"name":     "Ray",
		"email":    "ray@example.com",
		"password": "mypass123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Ray", body.User.Name)
	assert.Equal(t, "ray@example.com", body.User.Email)
	assert.NotEmpty(t, body.Token)

	raw := rec.Body.String()
	assert.NotContains(t, raw, "password", "credential material must never be serialized")
	assert.NotContains(t, raw, "tokens")

	var stored model.User
	require.NoError(t, s.db.Where("email = ?", "ray@example.com").First(&stored).Error)
	assert.NotEqual(t, "mypass123", stored.PasswordHash)

	var sessions int64
	require.NoError(t, s.db.Model(&model.Session{}).Where("user_id = ?", stored.ID).Count(&sessions).Error)
	assert.EqualValues(t, 1, sessions)
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name    string
		payload gin.H
	}{
		{"missing name", gin.H{"email": "a@b.com", "password": "mypass123"}},
		{"bad email", gin.H{"name": "Ray", "email": "nope", "password": "mypass123"}},
		{"short password", gin.H{"name": "Ray", "email": "a@b.com", "password": "abc"}},
		{"password contains password", gin.H{"name": "Ray", "email": "a@b.com", "password": "Password1"}},
		{"negative age", gin.H{"name": "Ray", "email": "a@b.com", "password": "mypass123", "age": -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/users", "", tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "Ray", "ray@example.com", "mypass123")

	t.Run("existing user", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/users/login", "", gin.H{
			"email":    "ray@example.com",
			"password": "mypass123",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var body authBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/users/login", "", gin.H{
			"email":    "ray@example.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("nonexistent user", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/users/login", "", gin.H{
			"email":    "ghost@example.com",
			"password": "mypass123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProtectedEndpointsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodPatch, "/users/me"},
		{http.MethodDelete, "/users/me"},
		{http.MethodPost, "/users/logout"},
		{http.MethodPost, "/users/logoutAll"},
		{http.MethodDelete, "/users/me/avatar"},
		{http.MethodPost, "/tasks"},
		{http.MethodGet, "/tasks"},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := s.do(t, p.method, p.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestProfile(t *testing.T) {
	s := newTestServer(t)
	auth := s.signup(t, "Ray", "ray@example.com", "mypass123")

	t.Run("me", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/users/me", auth.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var user model.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
		assert.Equal(t, "ray@example.com", user.Email)
	})

	t.Run("update valid field", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/users/me", auth.Token, gin.H{"name": "John"})
		require.Equal(t, http.StatusOK, rec.Code)

		var stored model.User
		require.NoError(t, s.db.First(&stored, auth.User.ID).Error)
		assert.Equal(t, "John", stored.Name)
	})

	t.Run("update invalid field rejected whole", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/users/me", auth.Token, gin.H{"location": "Calgary"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var stored model.User
		require.NoError(t, s.db.First(&stored, auth.User.ID).Error)
		assert.Equal(t, "John", stored.Name, "rejected update mutates no fields")
	})
}

func TestLogoutEndpoints(t *testing.T) {
	s := newTestServer(t)
	auth := s.signup(t, "Ray", "ray@example.com", "mypass123")

	rec := s.do(t, http.MethodPost, "/users/logout", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/users/me", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logged-out token must be rejected")
}

func TestDeleteAccountEndpoint(t *testing.T) {
	s := newTestServer(t)
	auth := s.signup(t, "Ray", "ray@example.com", "mypass123")

	rec := s.do(t, http.MethodDelete, "/users/me", auth.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, s.db.Model(&model.User{}).Count(&count).Error)
	assert.Zero(t, count)

	rec = s.do(t, http.MethodGet, "/users/me", auth.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "all prior tokens must be invalid")
}

func TestAvatarLifecycle(t *testing.T) {
	s := newTestServer(t)
	auth := s.signup(t, "Ray", "ray@example.com", "mypass123")

	rec := s.uploadAvatar(t, auth.Token, "myPhoto.jpg", testJPEG(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored model.User
	require.NoError(t, s.db.First(&stored, auth.User.ID).Error)
	require.NotEmpty(t, stored.Avatar)
	decoded, err := png.Decode(bytes.NewReader(stored.Avatar))
	require.NoError(t, err)
	assert.Equal(t, 250, decoded.Bounds().Dx())
	assert.Equal(t, 250, decoded.Bounds().Dy())

	t.Run("fetch by id", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, fmt.Sprintf("/users/%d/avatar", auth.User.ID), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpg", rec.Header().Get("Content-Type"))
		assert.Equal(t, stored.Avatar, rec.Body.Bytes())
	})

	t.Run("delete then fetch is 404", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/users/me/avatar", auth.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodGet, fmt.Sprintf("/users/%d/avatar", auth.User.ID), "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAvatarUploadRejections(t *testing.T) {
	s := newTestServer(t)
	auth := s.signup(t, "Ray", "ray@example.com", "mypass123")

	t.Run("disallowed extension", func(t *testing.T) {
		rec := s.uploadAvatar(t, auth.Token, "doc.pdf", testJPEG(t))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized file", func(t *testing.T) {
		rec := s.uploadAvatar(t, auth.Token, "big.jpg", bytes.Repeat([]byte{0xff}, 1_000_001))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("corrupt image data", func(t *testing.T) {
		rec := s.uploadAvatar(t, auth.Token, "fake.png", []byte("not an image at all"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	var stored model.User
	require.NoError(t, s.db.First(&stored, auth.User.ID).Error)
	assert.Empty(t, stored.Avatar, "rejected uploads store nothing")
}

func TestAvatarFetchUnknownUser(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/users/9999/avatar", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.signup(t, "Ray", "ray@example.com", "mypass123")
	other := s.signup(t, "Kim", "kim@example.com", "kimpass99")

	rec := s.do(t, http.MethodPost, "/tasks", owner.Token, gin.H{"description": "buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var task model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
	assert.False(t, task.Completed, "completed defaults to false")
	assert.Equal(t, owner.User.ID, task.OwnerID)

	t.Run("owner can fetch", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), owner.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other user sees 404", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), other.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list with completed filter", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/tasks", owner.Token, gin.H{"description": "done thing", "completed": true})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = s.do(t, http.MethodGet, "/tasks?completed=true", owner.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var tasks []model.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
		require.Len(t, tasks, 1)
		assert.Equal(t, "done thing", tasks[0].Description)
	})

	t.Run("update allow-list", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), owner.Token, gin.H{"completed": true})
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = s.do(t, http.MethodPatch, fmt.Sprintf("/tasks/%d", task.ID), owner.Token, gin.H{"owner_id": other.User.ID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("other user cannot delete", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), other.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = s.do(t, http.MethodDelete, fmt.Sprintf("/tasks/%d", task.ID), owner.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/healthz", "", nil)
	// Database is up, redis and rabbitmq are not wired in tests.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "taskhub-test", body["app"])
	assert.Contains(t, body, "dependencies")
}
