package biot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// DataManager performs authenticated data operations against the platform:
// template resolution, generic entity CRUD, usage sessions, and file
// transfer through signed URLs.
//
// Every operation checks the owning service's health before the actual
// request. Delete operations are refused unless the manager was built with
// WithDeleteAllowed, a guard against accidental destructive automation.
type DataManager struct {
	client      *Client
	allowDelete bool
	logger      snapshot.Logger
}

// DataManagerOption defines a functional option for configuring DataManager.
type DataManagerOption func(*DataManager)

// WithDeleteAllowed enables delete operations for this manager.
func WithDeleteAllowed() DataManagerOption {
	return func(m *DataManager) {
		m.allowDelete = true
	}
}

// WithDataManagerLogger sets the logger for the DataManager.
func WithDataManagerLogger(logger snapshot.Logger) DataManagerOption {
	return func(m *DataManager) {
		m.logger = logger
	}
}

// NewDataManager creates a DataManager over an authenticated client.
func NewDataManager(client *Client, options ...DataManagerOption) (*DataManager, error) {
	if client == nil {
		return nil, errors.New("nil client supplied")
	}

	manager := &DataManager{client: client}
	for _, option := range options {
		option(manager)
	}

	return manager, nil
}

// determineHealthCheckEndpoint maps an endpoint onto the health check
// endpoint of the service owning it.
func determineHealthCheckEndpoint(endpoint string) (string, bool) {
	for service, healthCheck := range healthCheckEndpoints {
		if strings.Contains(endpoint, service) {
			return healthCheck, true
		}
	}

	return "", false
}

// makeAuthenticatedRequest performs one authenticated request with a
// preceding health check of the owning service. Success is 200/201, plus
// 204 for delete-enabled managers; any other status surfaces as a
// *snapshot.UpstreamError.
func (m *DataManager) makeAuthenticatedRequest(ctx context.Context, method string, endpoint string, body any) (*http.Response, error) {
	if method == http.MethodDelete && !m.allowDelete {
		return nil, ErrDeleteNotAllowed
	}

	headers, err := m.client.AuthHeaders()
	if err != nil {
		return nil, err
	}

	healthCheck, known := determineHealthCheckEndpoint(endpoint)
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, endpoint)
	}
	if !m.client.IsSystemHealthy(ctx, healthCheck) {
		return nil, fmt.Errorf("%w: %s", ErrServiceUnhealthy, healthCheck)
	}

	resp, err := m.client.api.MakeRequest(ctx, method, endpoint, headers, body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return resp, nil
	case http.StatusNoContent:
		if m.allowDelete {
			return resp, nil
		}
	}

	defer func() { _ = resp.Body.Close() }()

	return nil, upstreamError(resp)
}

// encodeSearchRequest builds the searchRequest query parameter the platform
// expects: URL-encoded JSON carrying a filter document.
func encodeSearchRequest(filter map[string]any) (string, error) {
	payload, err := apiJSON.Marshal(map[string]any{"filter": filter})
	if err != nil {
		return "", err
	}

	return "searchRequest=" + url.QueryEscape(string(payload)), nil
}

// searchResponse is the platform's paged list envelope.
type searchResponse struct {
	Data []map[string]any `json:"data"`
}

// searchRequest performs a filtered GET against a list endpoint.
func (m *DataManager) searchRequest(ctx context.Context, endpoint string, filter map[string]any) ([]map[string]any, error) {
	query, err := encodeSearchRequest(filter)
	if err != nil {
		return nil, err
	}

	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodGet, endpoint+"?"+query, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed searchResponse
	if err := apiJSON.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	return parsed.Data, nil
}

// GetTemplateIDByName resolves a template name to its id.
func (m *DataManager) GetTemplateIDByName(ctx context.Context, templateName string) (string, error) {
	templates, err := m.searchRequest(ctx, TemplatesURL, map[string]any{
		"name": map[string]any{"eq": templateName},
	})
	if err != nil {
		return "", err
	}
	if len(templates) == 0 {
		return "", fmt.Errorf("no template named %q", templateName)
	}

	id, _ := templates[0]["id"].(string)
	if id == "" {
		return "", fmt.Errorf("template %q carries no id", templateName)
	}

	return id, nil
}

// GetTemplateIDsByNames resolves multiple template names to their ids, in
// the platform's result order.
func (m *DataManager) GetTemplateIDsByNames(ctx context.Context, templateNames []string) ([]string, error) {
	templates, err := m.searchRequest(ctx, TemplatesURL, map[string]any{
		"name": map[string]any{"in": templateNames},
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(templates))
	for _, template := range templates {
		if id, ok := template["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// GetGenericEntitiesByFilter retrieves generic entities matching a filter.
//
// The filter maps field names to platform filter expressions; fields are
// either custom template parameters or the built-in parameters _id,
// _ownerOrganization.id, _name, _templateId, _templateName,
// _lastModifiedTime, _creationTime.
func (m *DataManager) GetGenericEntitiesByFilter(ctx context.Context, filter map[string]any) ([]map[string]any, error) {
	return m.searchRequest(ctx, GenericEntitiesURL, filter)
}

// CreateGenericEntity posts a new generic entity document.
func (m *DataManager) CreateGenericEntity(ctx context.Context, document map[string]any) (map[string]any, error) {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodPost, GenericEntitiesURL, document)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var created map[string]any
	if err := apiJSON.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateGenericEntityByID patches selected fields of a generic entity.
func (m *DataManager) UpdateGenericEntityByID(ctx context.Context, entityID string, partial map[string]any) error {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodPatch, GenericEntitiesURL+"/"+entityID, partial)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	return nil
}

// DeleteGenericEntityByID deletes a generic entity. The manager must have
// been built with WithDeleteAllowed.
func (m *DataManager) DeleteGenericEntityByID(ctx context.Context, entityID string) error {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodDelete, GenericEntitiesURL+"/"+entityID, nil)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	return nil
}

// GetDevicesByFilter retrieves device records matching a filter.
func (m *DataManager) GetDevicesByFilter(ctx context.Context, filter map[string]any) ([]map[string]any, error) {
	return m.searchRequest(ctx, DevicesURL, filter)
}

// CreateDevice posts a new device record.
func (m *DataManager) CreateDevice(ctx context.Context, document map[string]any) (map[string]any, error) {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodPost, DevicesURL, document)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var created map[string]any
	if err := apiJSON.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, err
	}

	return created, nil
}

// GetUsageSessionByUUID retrieves usage sessions carrying a session uuid.
func (m *DataManager) GetUsageSessionByUUID(ctx context.Context, sessionUUID string) ([]map[string]any, error) {
	return m.searchRequest(ctx, UsageSessionsURL, map[string]any{
		"session_uuid": map[string]any{"in": []string{sessionUUID}},
	})
}

// GetUsageSessionByID retrieves one usage session of one device.
func (m *DataManager) GetUsageSessionByID(ctx context.Context, sessionID string, deviceID string) (map[string]any, error) {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodGet,
		DevicesURL+"/"+deviceID+"/usage-sessions/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var session map[string]any
	if err := apiJSON.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}

	return session, nil
}

// UpdateUsageSession patches a usage session of a device.
func (m *DataManager) UpdateUsageSession(ctx context.Context, sessionID string, deviceID string, partial map[string]any) error {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodPatch,
		DevicesURL+"/"+deviceID+"/usage-sessions/"+sessionID, partial)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	return nil
}

type fileInfo struct {
	ID        string `json:"id"`
	SignedURL string `json:"signedUrl"`
}

// GetFileSignedURLByID retrieves the download signed URL of a stored file.
func (m *DataManager) GetFileSignedURLByID(ctx context.Context, fileID string) (string, error) {
	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodGet, FilesURL+"/"+fileID+"/download", nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var info fileInfo
	if err := apiJSON.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.SignedURL == "" {
		return "", errors.New("file download response carries no signed url")
	}

	return info.SignedURL, nil
}

// DownloadFile fetches a stored file's content through its signed URL.
func (m *DataManager) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	signedURL, err := m.GetFileSignedURLByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.api.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp)
	}

	return io.ReadAll(resp.Body)
}

// UploadFile registers a file with the platform, uploads its content to
// the returned signed URL, and returns the file id.
func (m *DataManager) UploadFile(ctx context.Context, fileName string, mimeType string, content io.Reader) (string, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	resp, err := m.makeAuthenticatedRequest(ctx, http.MethodPost, FileUploadURL, map[string]string{
		"name":     fileName,
		"mimeType": mimeType,
	})
	if err != nil {
		return "", err
	}

	var info fileInfo
	decodeErr := apiJSON.NewDecoder(resp.Body).Decode(&info)
	_ = resp.Body.Close()
	if decodeErr != nil {
		return "", decodeErr
	}
	if info.SignedURL == "" {
		return "", errors.New("file upload response carries no signed url")
	}

	uploadReq, err := http.NewRequestWithContext(ctx, http.MethodPut, info.SignedURL, content)
	if err != nil {
		return "", err
	}

	uploadResp, err := m.client.api.doer.Do(uploadReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = uploadResp.Body.Close() }()

	if uploadResp.StatusCode != http.StatusOK {
		return "", upstreamError(uploadResp)
	}

	return info.ID, nil
}
