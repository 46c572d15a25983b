// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/resumehub/internal/platform/apperr"
	"github.com/taibuivan/resumehub/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/resumehub/internal/platform/request"
	"github.com/taibuivan/resumehub/internal/platform/sec"
	"github.com/taibuivan/resumehub/internal/platform/validate"
)

type payload struct {
	Token string `json:"refresh_token"`
}

func post(body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(http.MethodPost, "/", nil)
	}
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSON(t *testing.T) {
	var target payload
	require.NoError(t, requestutil.DecodeJSON(httptest.NewRecorder(), post(`{"refresh_token":"abc"}`), &target))
	assert.Equal(t, "abc", target.Token)

	for _, body := range []string{"", "{", `{"refresh_token":1}`, strings.Repeat(" ", 2<<20) + "{}"} {
		err := requestutil.DecodeJSON(httptest.NewRecorder(), post(body), &payload{})
		assert.ErrorIs(t, err, validate.ErrInvalidJSON)
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var target payload
	assert.NoError(t, requestutil.DecodeOptionalJSON(httptest.NewRecorder(), post(""), &target))
	assert.Empty(t, target.Token)

	require.NoError(t, requestutil.DecodeOptionalJSON(httptest.NewRecorder(), post(`{"refresh_token":"abc"}`), &target))
	assert.Equal(t, "abc", target.Token)

	err := requestutil.DecodeOptionalJSON(httptest.NewRecorder(), post("{"), &target)
	assert.ErrorIs(t, err, validate.ErrInvalidJSON)
}

func TestRequiredUserID(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/auth/me", nil)

	_, err := requestutil.RequiredUserID(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	claims := &sec.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-7"}}
	request = request.WithContext(ctxutil.WithAuthUser(request.Context(), claims))

	id, err := requestutil.RequiredUserID(request)
	require.NoError(t, err)
	assert.Equal(t, "user-7", id)
}
