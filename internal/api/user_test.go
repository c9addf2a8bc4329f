package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/lalith-99/vidstream/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCurrentUserHidesSecrets(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.seedUser(t, "alice")

	w := env.do(t, http.MethodGet, "/api/v1/users/current-user", token, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &fields))
	assert.Equal(t, alice.ID.String(), fields["id"])
	assert.Equal(t, "alice", fields["userName"])
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, fields, "refreshToken")

	stored, err := env.users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RefreshToken, "a session is open")
	assert.NotContains(t, w.Body.String(), *stored.RefreshToken)
	assert.NotContains(t, w.Body.String(), stored.PasswordHash)

	w = env.do(t, http.MethodGet, "/api/v1/users/current-user", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAccount(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.seedUser(t, "alice")
	env.seedUser(t, "bob")

	t.Run("email is trimmed and lowercased", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{
			"fullName": "  Alice Liddell ",
			"email":    "Alice.New@Example.COM",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		got := data[models.User](t, w)
		assert.Equal(t, "Alice Liddell", got.FullName)
		assert.Equal(t, "alice.new@example.com", got.Email)
	})

	t.Run("email taken by someone else", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{
			"fullName": "Alice",
			"email":    "BOB@example.com",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "email is already in use", decode(t, w).Message)
	})

	t.Run("blank full name", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{
			"fullName": "   ",
			"email":    "alice@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid email", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{
			"fullName": "Alice",
			"email":    "not-an-email",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	stored, err := env.users.GetByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice.new@example.com", stored.Email, "rejected updates change nothing")
	assert.Equal(t, "Alice Liddell", stored.FullName)
}

func TestUpdateImages(t *testing.T) {
	routes := []struct {
		path  string
		field string
		image func(u *models.User) string
	}{
		{"/api/v1/users/update-avatar", "avatar", func(u *models.User) string { return u.Avatar }},
		{"/api/v1/users/update-cover", "coverImage", func(u *models.User) string { return u.CoverImage }},
	}

	for _, rt := range routes {
		t.Run(rt.field, func(t *testing.T) {
			t.Run("missing file", func(t *testing.T) {
				env := newTestEnv(t)
				_, token := env.seedUser(t, "alice")

				body, ct := multipartBody(t, map[string]string{"note": "no file"}, nil)
				w := env.do(t, http.MethodPatch, rt.path, token, ct, body)
				assert.Equal(t, http.StatusBadRequest, w.Code)
				env.uploader.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
			})

			t.Run("upload failure leaves the user unchanged", func(t *testing.T) {
				env := newTestEnv(t)
				env.uploader.On("Upload", mock.Anything, mock.Anything).Return(nil, errors.New("bucket gone"))
				alice, token := env.seedUser(t, "alice")
				before := rt.image(alice)

				body, ct := multipartBody(t, nil, map[string]string{rt.field: "face.png"})
				w := env.do(t, http.MethodPatch, rt.path, token, ct, body)
				assert.Equal(t, http.StatusInternalServerError, w.Code)

				stored, err := env.users.GetByID(context.Background(), alice.ID)
				require.NoError(t, err)
				assert.Equal(t, before, rt.image(stored))
				assert.Empty(t, env.tempFiles(t))
			})

			t.Run("success stores the new url", func(t *testing.T) {
				env := newTestEnv(t)
				env.uploadsSucceed()
				alice, token := env.seedUser(t, "alice")

				body, ct := multipartBody(t, nil, map[string]string{rt.field: "face.png"})
				w := env.do(t, http.MethodPatch, rt.path, token, ct, body)
				require.Equal(t, http.StatusOK, w.Code, w.Body.String())
				assert.Equal(t, "https://cdn.test/uploads/object", rt.image(ptr(data[models.User](t, w))))

				stored, err := env.users.GetByID(context.Background(), alice.ID)
				require.NoError(t, err)
				assert.Equal(t, "https://cdn.test/uploads/object", rt.image(stored))
				assert.Empty(t, env.tempFiles(t))
			})
		})
	}
}

func ptr[T any](v T) *T { return &v }
