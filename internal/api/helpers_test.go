package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/vidstream/internal/auth"
	"github.com/lalith-99/vidstream/internal/media"
	"github.com/lalith-99/vidstream/internal/models"
	"github.com/lalith-99/vidstream/internal/realtime"
	"github.com/lalith-99/vidstream/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "password123"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router   *gin.Engine
	db       *memDB
	users    *memUsers
	sessions *auth.Service
	uploader *MockUploader
	tempDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newMemDB()
	users := &memUsers{db: db}
	sessions := auth.NewService(users, auth.Options{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	env := &testEnv{
		db:       db,
		users:    users,
		sessions: sessions,
		uploader: new(MockUploader),
		tempDir:  t.TempDir(),
	}

	env.router = NewRouter(Dependencies{
		Users:         users,
		Videos:        &memVideos{db: db},
		Comments:      &memComments{db: db},
		Likes:         &memLikes{db: db},
		Subscriptions: &memSubs{db: db},
		Playlists:     &memPlaylists{db: db},
		Dashboard:     &memDashboard{db: db},
		Auth:          sessions,
		Sessions:      sessions,
		Uploader:      env.uploader,
		Hub:           realtime.NewHub(zap.NewNop()),
		Health: map[string]Check{
			"postgres": func(context.Context) error { return nil },
		},
		TempDir:     env.tempDir,
		MaxUploadMB: 10,
		HistoryMax:  200,
		Logger:      zap.NewNop(),
	})
	return env
}

// uploadsSucceed makes every upload return a CDN URL.
func (e *testEnv) uploadsSucceed() {
	e.uploader.On("Upload", mock.Anything, mock.Anything).
		Return(&media.Result{URL: "https://cdn.test/uploads/object"}, nil)
}

// seedUser inserts a user directly and returns it with a valid access token.
func (e *testEnv) seedUser(t *testing.T, userName string) (*models.User, string) {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	u, err := e.users.Create(context.Background(), repository.NewUser{
		UserName:     userName,
		Email:        userName + "@example.com",
		FullName:     userName + " Example",
		Avatar:       "https://cdn.test/avatar.png",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	pair, err := e.sessions.IssueTokenPair(context.Background(), u)
	require.NoError(t, err)
	return u, pair.AccessToken
}

// seedVideo inserts a published video owned by ownerID.
func (e *testEnv) seedVideo(t *testing.T, owner *models.User, title, description string) *models.Video {
	t.Helper()

	v, err := (&memVideos{db: e.db}).Create(context.Background(), repository.NewVideo{
		OwnerID:     owner.ID,
		Title:       title,
		Description: description,
		VideoFile:   "https://cdn.test/video.mp4",
		Thumbnail:   "https://cdn.test/thumb.png",
		Duration:    12.5,
	})
	require.NoError(t, err)
	return v
}

func (e *testEnv) do(t *testing.T, method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, token, "application/json", body)
}

// tempFiles lists whatever is left in the staging directory.
func (e *testEnv) tempFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// multipartBody builds a multipart/form-data body. files maps a form field
// to the filename sent for it.
func multipartBody(t *testing.T, fields, files map[string]string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake file contents"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type testEnvelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  []string        `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) testEnvelope {
	t.Helper()

	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// data decodes the envelope's data field into out.
func data[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &out), w.Body.String())
	return out
}

type videoPage struct {
	Videos []models.Video `json:"videos"`
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Total  int64          `json:"total"`
}

type commentPage struct {
	Comments []models.Comment `json:"comments"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
	Total    int64            `json:"total"`
}

func cookieNamed(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
