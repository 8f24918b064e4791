package flow

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// FieldStore manages field-definition persistence, scoped by campaign.
type FieldStore interface {
	// Add a new field definition
	Add(field *Field) error

	// Get a field by campaign and key
	Get(campaignID, key string) (*Field, error)

	// ListByCampaign returns a campaign's fields ordered by step then sort order
	ListByCampaign(campaignID string) ([]Field, error)

	// ListCampaigns returns every campaign ID that has fields
	ListCampaigns() ([]string, error)

	// Update an existing field definition
	Update(field *Field) error

	// Delete a field definition
	Delete(campaignID, key string) error
}

// InMemoryFieldStore implements FieldStore using an in-memory map.
// Thread-safe with RWMutex.
type InMemoryFieldStore struct {
	fields map[string]map[string]*Field // campaignID -> key -> field
	mu     sync.RWMutex
}

// NewInMemoryFieldStore creates a new in-memory field store.
func NewInMemoryFieldStore() *InMemoryFieldStore {
	return &InMemoryFieldStore{
		fields: make(map[string]map[string]*Field),
	}
}

// Add adds a new field definition, enforcing key uniqueness per campaign.
func (s *InMemoryFieldStore) Add(field *Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	campaign, ok := s.fields[field.CampaignID]
	if !ok {
		campaign = make(map[string]*Field)
		s.fields[field.CampaignID] = campaign
	}

	if _, exists := campaign[field.Key]; exists {
		return fmt.Errorf("field %q already exists in campaign %s", field.Key, field.CampaignID)
	}

	now := time.Now()
	field.CreatedAt = now
	field.UpdatedAt = now
	campaign[field.Key] = field
	return nil
}

// Get retrieves a field by campaign and key.
func (s *InMemoryFieldStore) Get(campaignID, key string) (*Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	field, ok := s.fields[campaignID][key]
	if !ok {
		return nil, fmt.Errorf("field %q not found in campaign %s", key, campaignID)
	}
	return field, nil
}

// ListByCampaign returns the campaign's fields sorted by step, then sort
// order, then key for a stable result.
func (s *InMemoryFieldStore) ListByCampaign(campaignID string) ([]Field, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fields []Field
	for _, f := range s.fields[campaignID] {
		fields = append(fields, *f)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		if fields[i].Step != fields[j].Step {
			return fields[i].Step < fields[j].Step
		}
		if fields[i].SortOrder != fields[j].SortOrder {
			return fields[i].SortOrder < fields[j].SortOrder
		}
		return fields[i].Key < fields[j].Key
	})
	return fields, nil
}

// ListCampaigns returns every campaign ID present in the store.
func (s *InMemoryFieldStore) ListCampaigns() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Update updates an existing field definition, preserving CreatedAt.
func (s *InMemoryFieldStore) Update(field *Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.fields[field.CampaignID][field.Key]
	if !ok {
		return fmt.Errorf("field %q not found in campaign %s", field.Key, field.CampaignID)
	}

	field.CreatedAt = existing.CreatedAt
	field.UpdatedAt = time.Now()
	s.fields[field.CampaignID][field.Key] = field
	return nil
}

// Delete removes a field definition.
func (s *InMemoryFieldStore) Delete(campaignID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fields[campaignID][key]; !ok {
		return fmt.Errorf("field %q not found in campaign %s", key, campaignID)
	}
	delete(s.fields[campaignID], key)
	return nil
}
