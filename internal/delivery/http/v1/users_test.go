package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/todozap/api/internal/models"
	"github.com/todozap/api/internal/services"
)

func TestGetUser_GetOrCreates(t *testing.T) {
	users := &fakeUserService{
		getOrCreateByEmailFn: func(_ context.Context, email string) (*models.User, error) {
			assert.Equal(t, "New@User.com", email)
			return &models.User{ID: "u1", Email: "new@user.com"}, nil
		},
	}
	router := newTestRouter(users, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodGet, "/api/user?user_key=New@User.com", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	assert.Equal(t, "u1", got["id"])
	assert.Equal(t, "new@user.com", got["email"])
	assert.Nil(t, got["whatsapp_number"])
	assert.Nil(t, got["display_name"])
}

func TestGetUser_MissingKey(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodGet, "/api/user", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "user_key is required")
}

func TestSetWhatsAppNumber(t *testing.T) {
	users := &fakeUserService{
		setWhatsAppNumberFn: func(_ context.Context, email, number string) (*models.User, error) {
			assert.Equal(t, "a@b.com", email)
			assert.Equal(t, "(42) 99123-4567", number)
			return userFixture(), nil
		},
	}
	router := newTestRouter(users, &fakeTaskService{}, &fakeDelegate{})

	body := `{"user_key": "a@b.com", "whatsapp_number": "(42) 99123-4567"}`
	recorder := doRequest(t, router, http.MethodPost, "/api/user", body)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	assert.Equal(t, "42991234567", got["whatsapp_number"])
}

func TestSetWhatsAppNumber_MissingFields(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodPost, "/api/user", `{"user_key": "a@b.com"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "whatsapp_number are required")
}

func TestResolveUser(t *testing.T) {
	users := &fakeUserService{
		resolveByIdentifierFn: func(_ context.Context, identifier string) (*models.User, error) {
			assert.Equal(t, "42991234567", identifier)
			return userFixture(), nil
		},
	}
	router := newTestRouter(users, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodGet, "/api/user-id?identifier=42991234567", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	assert.Equal(t, userFixture().ID, got["user_id"])
	assert.Equal(t, "a@b.com", got["email"])
	assert.Equal(t, "42991234567", got["whatsapp_number"])
	assert.Equal(t, "Alice", got["display_name"])
}

func TestResolveUser_NotFoundIsNotACreation(t *testing.T) {
	users := &fakeUserService{
		resolveByIdentifierFn: func(context.Context, string) (*models.User, error) {
			return nil, services.ErrUserNotFound
		},
		getOrCreateByEmailFn: func(context.Context, string) (*models.User, error) {
			t.Fatal("resolve must never create a user")
			return nil, nil
		},
	}
	router := newTestRouter(users, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodGet, "/api/user-id?identifier=nobody@x.com", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "user not found")
}

func TestResolveUser_MissingIdentifier(t *testing.T) {
	router := newTestRouter(&fakeUserService{}, &fakeTaskService{}, &fakeDelegate{})

	recorder := doRequest(t, router, http.MethodGet, "/api/user-id", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
