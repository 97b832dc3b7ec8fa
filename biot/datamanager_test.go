package biot_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biotmed/biot-sdk-go/biot"
	"github.com/biotmed/biot-sdk-go/snapshot"
)

func Test_DataManager_DeleteGenericEntityByID_When_DeletesAreNotAllowed(t *testing.T) {
	// setup
	requests := 0
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.GenericEntitiesURL+"/", func(http.ResponseWriter, *http.Request) {
			requests++
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	err := manager.DeleteGenericEntityByID(context.Background(), "ge-1")

	// assert
	assert.ErrorIs(t, err, biot.ErrDeleteNotAllowed)
	assert.Zero(t, requests, "no request must reach the platform when deletes are disabled")
}

func Test_DataManager_DeleteGenericEntityByID_When_DeletesAreAllowed(t *testing.T) {
	// setup
	var deleted string
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.GenericEntitiesURL+"/", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodDelete, r.Method)
			deleted = strings.TrimPrefix(r.URL.Path, biot.GenericEntitiesURL+"/")
			w.WriteHeader(http.StatusNoContent)
		})
	})
	defer server.Close()

	manager := givenManager(t, server, biot.WithDeleteAllowed())

	// act
	err := manager.DeleteGenericEntityByID(context.Background(), "ge-1")

	// assert
	assert.NoError(t, err)
	assert.Equal(t, "ge-1", deleted)
}

func Test_DataManager_When_ServiceIsUnhealthy(t *testing.T) {
	// setup
	server := newPlatformServerWithHealth(t, false, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.GenericEntitiesURL, func(http.ResponseWriter, *http.Request) {
			t.Error("the data request must not be made when the health check fails")
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	_, err := manager.GetGenericEntitiesByFilter(context.Background(), map[string]any{})

	// assert
	assert.ErrorIs(t, err, biot.ErrServiceUnhealthy)
}

func Test_DataManager_GetTemplateIDByName_EncodesSearchRequest(t *testing.T) {
	// setup
	var rawSearch string
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.TemplatesURL, func(w http.ResponseWriter, r *http.Request) {
			rawSearch = r.URL.Query().Get("searchRequest")
			writeJSON(t, w, http.StatusOK, map[string]any{
				"data": []map[string]any{{"id": "tpl-1", "name": "sensor"}},
			})
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	templateID, err := manager.GetTemplateIDByName(context.Background(), "sensor")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", templateID)

	var search map[string]any
	require.NoError(t, testJSON.UnmarshalFromString(rawSearch, &search))
	assert.Equal(t,
		map[string]any{"filter": map[string]any{"name": map[string]any{"eq": "sensor"}}},
		search)
}

func Test_DataManager_GetTemplateIDByName_When_NoTemplateMatches(t *testing.T) {
	// setup
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.TemplatesURL, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"data": []map[string]any{}})
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	_, err := manager.GetTemplateIDByName(context.Background(), "unknown")

	// assert
	assert.ErrorContains(t, err, "unknown")
}

func Test_DataManager_GetTemplateIDsByNames(t *testing.T) {
	// setup
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.TemplatesURL, func(w http.ResponseWriter, r *http.Request) {
			var search map[string]map[string]map[string]any
			require.NoError(t, testJSON.UnmarshalFromString(r.URL.Query().Get("searchRequest"), &search))
			assert.Equal(t, []any{"sensor", "patch"}, search["filter"]["name"]["in"])
			writeJSON(t, w, http.StatusOK, map[string]any{
				"data": []map[string]any{
					{"id": "tpl-1", "name": "sensor"},
					{"id": "tpl-2", "name": "patch"},
				},
			})
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	ids, err := manager.GetTemplateIDsByNames(context.Background(), []string{"sensor", "patch"})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []string{"tpl-1", "tpl-2"}, ids)
}

func Test_DataManager_When_UpstreamFails(t *testing.T) {
	// setup
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.GenericEntitiesURL, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"no access"}`))
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	_, err := manager.GetGenericEntitiesByFilter(context.Background(), map[string]any{})

	// assert
	require.Error(t, err)
	var upstreamErr *snapshot.UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusForbidden, upstreamErr.StatusCode)
}

func Test_DataManager_GetUsageSessionByID(t *testing.T) {
	// setup
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.DevicesURL+"/device-1/usage-sessions/session-1", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			writeJSON(t, w, http.StatusOK, map[string]any{"_id": "session-1", "_state": "DONE"})
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	session, err := manager.GetUsageSessionByID(context.Background(), "session-1", "device-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "session-1", session["_id"])
	assert.Equal(t, "DONE", session["_state"])
}

func Test_DataManager_UpdateUsageSession(t *testing.T) {
	// setup
	var patched map[string]any
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.DevicesURL+"/device-1/usage-sessions/session-1", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPatch, r.Method)
			require.NoError(t, decodeJSONBody(r, &patched))
			w.WriteHeader(http.StatusOK)
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	err := manager.UpdateUsageSession(context.Background(), "session-1", "device-1", map[string]any{"_state": "DONE"})

	// assert
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"_state": "DONE"}, patched)
}

func Test_DataManager_GetFileSignedURLByID(t *testing.T) {
	// setup
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.FilesURL+"/file-1/download", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"signedUrl": "https://storage.example.com/file-1"})
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	signedURL, err := manager.GetFileSignedURLByID(context.Background(), "file-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "https://storage.example.com/file-1", signedURL)
}

func Test_DataManager_DownloadFile(t *testing.T) {
	// setup
	var server *httptest.Server
	server = newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc(biot.FilesURL+"/file-1/download", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(t, w, http.StatusOK, map[string]any{"signedUrl": server.URL + "/signed-get"})
		})
		mux.HandleFunc("/signed-get", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("file content"))
		})
	})
	defer server.Close()

	manager := givenManager(t, server)

	// act
	content, err := manager.DownloadFile(context.Background(), "file-1")

	// assert
	require.NoError(t, err)
	assert.Equal(t, "file content", string(content))
}

func Test_DataManager_UploadFile(t *testing.T) {
	// setup
	var registered map[string]string
	var uploaded []byte
	server := newPlatformServer(t, func(mux *http.ServeMux) {
		mux.HandleFunc("/signed-put", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			var err error
			uploaded, err = io.ReadAll(r.Body)
			require.NoError(t, err)
			w.WriteHeader(http.StatusOK)
		})
	})
	defer server.Close()

	registerUpload := func(mux *http.ServeMux) {
		mux.HandleFunc(biot.FileUploadURL, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, decodeJSONBody(r, &registered))
			writeJSON(t, w, http.StatusOK, map[string]any{
				"id":        "file-1",
				"signedUrl": server.URL + "/signed-put",
			})
		})
	}
	uploadServer := newPlatformServer(t, registerUpload)
	defer uploadServer.Close()

	manager := givenManager(t, uploadServer)

	// act
	fileID, err := manager.UploadFile(context.Background(), "montage.png", "image/png", strings.NewReader("png bytes"))

	// assert
	require.NoError(t, err)
	assert.Equal(t, "file-1", fileID)
	assert.Equal(t, "montage.png", registered["name"])
	assert.Equal(t, "image/png", registered["mimeType"])
	assert.Equal(t, "png bytes", string(uploaded))
}

/*** platform server helpers ***/

func newPlatformServer(t *testing.T, register func(*http.ServeMux)) *httptest.Server {
	t.Helper()

	return newPlatformServerWithHealth(t, true, register)
}

func newPlatformServerWithHealth(t *testing.T, healthy bool, register func(*http.ServeMux)) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	for _, service := range []string{"device", "generic-entity", "file", "dms", "settings", "ums"} {
		mux.HandleFunc("/"+service+"/system/healthCheck", func(w http.ResponseWriter, _ *http.Request) {
			if healthy {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	if register != nil {
		register(mux)
	}

	return httptest.NewServer(mux)
}

func givenManager(t *testing.T, server *httptest.Server, options ...biot.DataManagerOption) *biot.DataManager {
	t.Helper()

	client, err := biot.NewClient(
		biot.NewAPIClientWithDoer(server.URL, server.Client()),
		biot.WithToken("test-token"),
	)
	require.NoError(t, err)

	manager, err := biot.NewDataManager(client, options...)
	require.NoError(t, err)

	return manager
}
