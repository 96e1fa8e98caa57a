package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPut, "/api/subscriptions", "student", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request","code":"invalid_argument"}`, w.Body.String())

	w = s.do(t, http.MethodPut, "/api/subscriptions", "", gin.H{"endpoint": "e", "p256dh": "k", "auth": "a"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	endpoint := "https://push.example.com/send/abc?x=1"
	query := "/api/subscriptions?endpoint=" + endpoint

	w := s.do(t, http.MethodPut, "/api/subscriptions", "student", gin.H{
		"endpoint": endpoint, "p256dh": "key", "auth": "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	sub, err := s.store.GetSubscription(t.Context(), endpoint)
	require.NoError(t, err)
	assert.Equal(t, studentID.LoginID, sub.LoginID)

	w = s.do(t, http.MethodGet, query, "student", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), studentID.LoginID)

	w = s.do(t, http.MethodGet, query, "other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "subscriptions are private to their owner")

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape(endpoint), "student", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "endpoints are matched without decoding")

	w = s.do(t, http.MethodDelete, "/api/subscriptions", "other", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodDelete, "/api/subscriptions", "student", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/subscriptions", "student", gin.H{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code, "deleting twice is fine")

	w = s.do(t, http.MethodGet, query, "student", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions", "student", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
