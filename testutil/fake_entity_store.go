// Package testutil provides the in-memory fake entity store and the
// fixture helpers shared by the package tests of this module.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// PostedEntity records one create call observed by the fake store.
type PostedEntity struct {
	Org        snapshot.OrgID
	Entity     snapshot.Entity
	AssignedID snapshot.EntityID
}

// PatchCall records one update call observed by the fake store.
type PatchCall struct {
	TemplateName snapshot.TemplateName
	ID           snapshot.EntityID
	Partial      map[string]any
}

// FakeEntityStore is an in-memory snapshot.EntityStore for tests. It hands
// out deterministic destination ids, records every write in call order, and
// supports scripted failures through the exported hook fields.
type FakeEntityStore struct {
	mu sync.Mutex

	// Scripted read responses, keyed by template name.
	FetchResponses map[snapshot.TemplateName]snapshot.Entities
	Devices        snapshot.Entities

	// Scripted failures. A nil hook never fails.
	FailFetch  func(templateName snapshot.TemplateName) error
	FailCreate func(entity snapshot.Entity) error
	FailUpdate func(templateName snapshot.TemplateName, id snapshot.EntityID) error

	posted  []PostedEntity
	patches []PatchCall
	nextID  int
}

// NewFakeEntityStore creates an empty fake store.
func NewFakeEntityStore() *FakeEntityStore {
	return &FakeEntityStore{
		FetchResponses: make(map[snapshot.TemplateName]snapshot.Entities),
	}
}

func (f *FakeEntityStore) FetchEntities(_ context.Context, templateName snapshot.TemplateName, _ time.Time) (snapshot.Entities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailFetch != nil {
		if err := f.FailFetch(templateName); err != nil {
			return nil, err
		}
	}

	return f.FetchResponses[templateName], nil
}

func (f *FakeEntityStore) FetchDevices(_ context.Context, _ time.Time) (snapshot.Entities, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailFetch != nil {
		if err := f.FailFetch(snapshot.DeviceGroupKey); err != nil {
			return nil, err
		}
	}

	return f.Devices, nil
}

func (f *FakeEntityStore) CreateEntity(_ context.Context, org snapshot.OrgID, entity snapshot.Entity) (snapshot.EntityID, error) {
	return f.create(org, entity)
}

func (f *FakeEntityStore) CreateDevice(_ context.Context, org snapshot.OrgID, device snapshot.Entity) (snapshot.EntityID, error) {
	return f.create(org, device)
}

func (f *FakeEntityStore) create(org snapshot.OrgID, entity snapshot.Entity) (snapshot.EntityID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		if err := f.FailCreate(entity); err != nil {
			return "", err
		}
	}

	f.nextID++
	assignedID := fmt.Sprintf("dst-%d", f.nextID)
	f.posted = append(f.posted, PostedEntity{Org: org, Entity: entity.Clone(), AssignedID: assignedID})

	return assignedID, nil
}

func (f *FakeEntityStore) UpdateEntity(_ context.Context, templateName snapshot.TemplateName, id snapshot.EntityID, partial map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailUpdate != nil {
		if err := f.FailUpdate(templateName, id); err != nil {
			return err
		}
	}

	f.patches = append(f.patches, PatchCall{TemplateName: templateName, ID: id, Partial: partial})

	return nil
}

// Posted returns every recorded create call in call order.
func (f *FakeEntityStore) Posted() []PostedEntity {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]PostedEntity, len(f.posted))
	copy(out, f.posted)

	return out
}

// PostedEntityByAssignedID returns the recorded create call that was
// assigned the given destination id.
func (f *FakeEntityStore) PostedEntityByAssignedID(id snapshot.EntityID) (PostedEntity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, posted := range f.posted {
		if posted.AssignedID == id {
			return posted, true
		}
	}

	return PostedEntity{}, false
}

// Patches returns every recorded update call in call order.
func (f *FakeEntityStore) Patches() []PatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]PatchCall, len(f.patches))
	copy(out, f.patches)

	return out
}

var _ snapshot.EntityStore = (*FakeEntityStore)(nil)
