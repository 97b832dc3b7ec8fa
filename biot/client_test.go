package biot_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/biot"
	"github.com/biotmed/biot-sdk-go/snapshot"
)

func Test_Client_Login_When_CredentialsAreValid(t *testing.T) {
	// setup
	var seenBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, biot.LoginURL, r.URL.Path)
		require.NoError(t, decodeJSONBody(r, &seenBody))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"accessJwt": map[string]any{"token": "token-123"},
		})
	}))
	defer server.Close()

	client, err := biot.NewClient(
		biot.NewAPIClientWithDoer(server.URL, server.Client()),
		biot.WithCredentials("user@example.com", "secret"),
	)
	require.NoError(t, err)

	// act
	token, err := client.Login(context.Background())

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "token-123", token)
	assert.Equal(t, "token-123", client.Token())
	assert.Equal(t, "user@example.com", seenBody["username"])
	assert.Equal(t, "secret", seenBody["password"])
}

func Test_Client_Login_When_UpstreamRejects(t *testing.T) {
	// setup
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
	}))
	defer server.Close()

	client, err := biot.NewClient(
		biot.NewAPIClientWithDoer(server.URL, server.Client()),
		biot.WithCredentials("user@example.com", "wrong"),
	)
	require.NoError(t, err)

	// act
	_, err = client.Login(context.Background())

	// assert
	require.Error(t, err)
	var upstreamErr *snapshot.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusUnauthorized, upstreamErr.StatusCode)
	assert.Contains(t, upstreamErr.Body, "bad credentials")
}

func Test_Client_Login_When_NoCredentialsConfigured(t *testing.T) {
	// setup
	client, err := biot.NewClient(biot.NewAPIClientWithDoer("http://unused", http.DefaultClient))
	require.NoError(t, err)

	// act
	_, err = client.Login(context.Background())

	// assert
	assert.ErrorIs(t, err, biot.ErrMissingCredentials)
}

func Test_Client_AuthHeaders_When_NotAuthenticated(t *testing.T) {
	// setup
	client, err := biot.NewClient(biot.NewAPIClientWithDoer("http://unused", http.DefaultClient))
	require.NoError(t, err)

	// act
	_, err = client.AuthHeaders()

	// assert
	assert.ErrorIs(t, err, biot.ErrNotAuthenticated)
}

func Test_Client_AuthHeaders_When_TokenSupplied(t *testing.T) {
	// setup
	client, err := biot.NewClient(
		biot.NewAPIClientWithDoer("http://unused", http.DefaultClient),
		biot.WithToken("ready-token"),
	)
	require.NoError(t, err)

	// act
	headers, err := client.AuthHeaders()

	// assert
	require.NoError(t, err)
	assert.Equal(t, "Bearer ready-token", headers.Get("authorization"))
	assert.Equal(t, "application/json", headers.Get("accept"))
}

func Test_Client_IsSystemHealthy_ReflectsUpstreamStatus(t *testing.T) {
	// setup
	healthy := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := biot.NewClient(biot.NewAPIClientWithDoer(server.URL, server.Client()))
	require.NoError(t, err)

	// act + assert
	assert.True(t, client.IsSystemHealthy(context.Background(), "/ums/system/healthCheck"))
	healthy = false
	assert.False(t, client.IsSystemHealthy(context.Background(), "/ums/system/healthCheck"))
}

func Test_NewClient_When_CredentialsAreIncomplete(t *testing.T) {
	// act
	_, err := biot.NewClient(
		biot.NewAPIClientWithDoer("http://unused", http.DefaultClient),
		biot.WithCredentials("user@example.com", ""),
	)

	// assert
	assert.ErrorIs(t, err, biot.ErrMissingCredentials)
}

func Test_NewClient_When_APIClientIsNil(t *testing.T) {
	// act
	_, err := biot.NewClient(nil)

	// assert
	assert.Error(t, err)
}

/*** test helpers shared across the package ***/

var testJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func decodeJSONBody(r *http.Request, target any) error {
	defer func() { _ = r.Body.Close() }()

	return testJSON.NewDecoder(r.Body).Decode(target)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, testJSON.NewEncoder(w).Encode(payload))
}
