package biot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// EntityStore adapts the platform's generic entity and device APIs to the
// snapshot engine's store contract. It translates between the engine's
// Entity DTO and the platform's wire shape, where built-in attributes
// carry an underscore prefix and template fields sit alongside them.
type EntityStore struct {
	manager *DataManager

	mu          sync.Mutex
	templateIDs map[snapshot.TemplateName]string
}

// NewEntityStore creates an EntityStore over a DataManager.
func NewEntityStore(manager *DataManager) (*EntityStore, error) {
	if manager == nil {
		return nil, errors.New("nil data manager supplied")
	}

	return &EntityStore{
		manager:     manager,
		templateIDs: make(map[snapshot.TemplateName]string),
	}, nil
}

// templateIDFor resolves a template name to its platform id, consulting a
// process-local cache first. Template ids are stable, so entries never
// expire.
func (s *EntityStore) templateIDFor(ctx context.Context, templateName snapshot.TemplateName) (string, error) {
	s.mu.Lock()
	cached, ok := s.templateIDs[templateName]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	id, err := s.manager.GetTemplateIDByName(ctx, templateName)
	if err != nil {
		return "", fmt.Errorf("%w: resolving template %q: %w", snapshot.ErrUpstreamFetchFailed, templateName, err)
	}

	s.mu.Lock()
	s.templateIDs[templateName] = id
	s.mu.Unlock()

	return id, nil
}

// FetchEntities returns all generic entities of one template created at or
// after since.
func (s *EntityStore) FetchEntities(ctx context.Context, templateName snapshot.TemplateName, since time.Time) (snapshot.Entities, error) {
	templateID, err := s.templateIDFor(ctx, templateName)
	if err != nil {
		return nil, err
	}

	documents, err := s.manager.GetGenericEntitiesByFilter(ctx, map[string]any{
		"_templateId":   map[string]any{"eq": templateID},
		"_creationTime": map[string]any{"gte": since.UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching %q entities: %w", snapshot.ErrUpstreamFetchFailed, templateName, err)
	}

	entities := make(snapshot.Entities, 0, len(documents))
	for _, document := range documents {
		entities = append(entities, entityFromDocument(templateName, document))
	}

	return entities, nil
}

// FetchDevices returns all device records created at or after since.
func (s *EntityStore) FetchDevices(ctx context.Context, since time.Time) (snapshot.Entities, error) {
	documents, err := s.manager.GetDevicesByFilter(ctx, map[string]any{
		"_creationTime": map[string]any{"gte": since.UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: fetching devices: %w", snapshot.ErrUpstreamFetchFailed, err)
	}

	devices := make(snapshot.Entities, 0, len(documents))
	for _, document := range documents {
		devices = append(devices, entityFromDocument(snapshot.DeviceGroupKey, document))
	}

	return devices, nil
}

// CreateEntity posts a generic entity into the given organization and
// returns the id the platform assigned.
func (s *EntityStore) CreateEntity(ctx context.Context, org snapshot.OrgID, entity snapshot.Entity) (snapshot.EntityID, error) {
	templateID, err := s.templateIDFor(ctx, entity.TemplateName)
	if err != nil {
		return "", err
	}

	created, err := s.manager.CreateGenericEntity(ctx, documentFromEntity(org, templateID, entity))
	if err != nil {
		return "", fmt.Errorf("%w: creating %q entity: %w", snapshot.ErrUpstreamPostFailed, entity.TemplateName, err)
	}

	return assignedID(created)
}

// CreateDevice posts a device record into the given organization and
// returns the id the platform assigned.
func (s *EntityStore) CreateDevice(ctx context.Context, org snapshot.OrgID, device snapshot.Entity) (snapshot.EntityID, error) {
	document := map[string]any{
		"_ownerOrganization": map[string]any{"id": org},
	}
	if device.Name != "" {
		document["_name"] = device.Name
	}
	for key, value := range device.Data {
		document[key] = value
	}

	created, err := s.manager.CreateDevice(ctx, document)
	if err != nil {
		return "", fmt.Errorf("%w: creating device: %w", snapshot.ErrUpstreamPostFailed, err)
	}

	return assignedID(created)
}

// UpdateEntity patches selected fields of an existing generic entity.
func (s *EntityStore) UpdateEntity(ctx context.Context, templateName snapshot.TemplateName, id snapshot.EntityID, partial map[string]any) error {
	if err := s.manager.UpdateGenericEntityByID(ctx, id, partial); err != nil {
		return fmt.Errorf("%w: patching %q entity %s: %w", snapshot.ErrUpstreamPatchFailed, templateName, id, err)
	}

	return nil
}

// documentFromEntity builds the platform's post document: built-in
// attributes under their underscore keys, template fields alongside.
func documentFromEntity(org snapshot.OrgID, templateID string, entity snapshot.Entity) map[string]any {
	document := map[string]any{
		"_templateId":        templateID,
		"_ownerOrganization": map[string]any{"id": org},
	}
	if entity.Name != "" {
		document["_name"] = entity.Name
	}
	for key, value := range entity.Data {
		document[key] = value
	}

	return document
}

// entityFromDocument translates a platform document into an Entity:
// underscore-prefixed built-ins feed the typed fields, everything else is
// a template field and lands in Data.
func entityFromDocument(templateName snapshot.TemplateName, document map[string]any) snapshot.Entity {
	entity := snapshot.Entity{TemplateName: templateName}

	data := make(map[string]any)
	for key, value := range document {
		switch key {
		case "_id":
			entity.ID, _ = value.(string)
		case "_name":
			entity.Name, _ = value.(string)
		case "_ownerOrganization":
			if owner, ok := value.(map[string]any); ok {
				entity.OwnerOrg, _ = owner["id"].(string)
			}
		default:
			if len(key) > 0 && key[0] == '_' {
				continue
			}
			data[key] = value
		}
	}
	if len(data) > 0 {
		entity.Data = data
	}

	return entity
}

func assignedID(document map[string]any) (snapshot.EntityID, error) {
	if id, ok := document["_id"].(string); ok && id != "" {
		return id, nil
	}

	return "", fmt.Errorf("%w: created entity carries no id", snapshot.ErrUpstreamPostFailed)
}
