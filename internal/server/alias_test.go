package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moetools/moepush/internal/moemail"
)

func postAlias(h http.Handler, auth, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/aliases", strings.NewReader(body))
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAliasSuccess(t *testing.T) {
	aliases := &fakeAliasClient{email: "x@y.com"}
	h := newTestHandler(testConfig(), newFakeNotifier(), aliases)

	rec := postAlias(h, "Bearer user-key", "application/json", `{"domain":"y.com","local_part":"box"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp aliasResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "x@y.com", resp.Data.Email)

	assert.Equal(t, "user-key", aliases.gotKey)
	assert.Equal(t, "y.com", aliases.gotReq.Domain)
	assert.Equal(t, "box", aliases.gotReq.LocalPart)
}

func TestAliasNoBodyStillWorks(t *testing.T) {
	aliases := &fakeAliasClient{email: "x@y.com"}
	h := newTestHandler(testConfig(), newFakeNotifier(), aliases)

	rec := postAlias(h, "Bearer user-key", "", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, moemail.AliasRequest{}, aliases.gotReq)
}

func TestAliasMissingAuth(t *testing.T) {
	h := newTestHandler(testConfig(), newFakeNotifier(), &fakeAliasClient{email: "x@y.com"})

	rec := postAlias(h, "", "application/json", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "Unauthorized")
}

func TestAliasEmptyBearerToken(t *testing.T) {
	h := newTestHandler(testConfig(), newFakeNotifier(), &fakeAliasClient{email: "x@y.com"})

	rec := postAlias(h, "Bearer   ", "application/json", `{}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAliasBearerSchemeCaseInsensitive(t *testing.T) {
	aliases := &fakeAliasClient{email: "x@y.com"}
	h := newTestHandler(testConfig(), newFakeNotifier(), aliases)

	rec := postAlias(h, "bearer user-key", "application/json", `{}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user-key", aliases.gotKey)
}

func TestAliasInvalidJSONBody(t *testing.T) {
	h := newTestHandler(testConfig(), newFakeNotifier(), &fakeAliasClient{email: "x@y.com"})

	rec := postAlias(h, "Bearer k", "application/json", "{broken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAliasUpstreamStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unauthorized", &moemail.APIError{StatusCode: 401, Message: "bad key"}, http.StatusUnauthorized},
		{"forbidden maps to unauthorized", &moemail.APIError{StatusCode: 403, Message: "no"}, http.StatusUnauthorized},
		{"bad request", &moemail.APIError{StatusCode: 400, Message: "bad domain"}, http.StatusBadRequest},
		{"server error", &moemail.APIError{StatusCode: 502, Message: "upstream"}, http.StatusInternalServerError},
		{"unexpected error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(testConfig(), newFakeNotifier(), &fakeAliasClient{err: tt.err})

			rec := postAlias(h, "Bearer k", "application/json", `{}`)
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}
