// Package campaign manages one loaded Flow per campaign, mirroring how the
// backing CMS scopes onboarding question sets. Definition changes rebuild
// the campaign's Flow and atomically swap it in, so in-flight evaluations
// keep the flow they started with.
package campaign

import (
	"fmt"
	"sync"

	"github.com/virionlabs/onboardflow/flow"
)

// Manager holds the loaded flows for all campaigns.
type Manager struct {
	store flow.FieldStore
	cache flow.FieldsCache
	flows map[string]*flow.Flow
	mu    sync.RWMutex
}

// NewManager creates a manager over the given field store.
func NewManager(store flow.FieldStore) *Manager {
	return &Manager{
		store: store,
		cache: flow.NewInMemoryFieldsCache(flow.DefaultCacheConfig()),
		flows: make(map[string]*flow.Flow),
	}
}

// LoadAll loads every campaign's field list from the store and builds its
// flow. A campaign with invalid definitions aborts the load; bad authored
// data should be caught at deploy time, not silently dropped.
func (m *Manager) LoadAll() error {
	ids, err := m.store.ListCampaigns()
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	for _, id := range ids {
		if err := m.Reload(id); err != nil {
			return fmt.Errorf("failed to load campaign %s: %w", id, err)
		}
	}
	return nil
}

// Reload fetches a campaign's fields, validates them, builds a new Flow,
// and atomically swaps it in.
func (m *Manager) Reload(campaignID string) error {
	fields, err := m.store.ListByCampaign(campaignID)
	if err != nil {
		return err
	}
	if fields == nil {
		fields = []flow.Field{}
	}

	if err := ValidateFields(fields); err != nil {
		return fmt.Errorf("invalid definitions: %w", err)
	}

	fl, err := flow.NewFlow(fields)
	if err != nil {
		return err
	}

	m.cache.Set(campaignID, fields)

	m.mu.Lock()
	m.flows[campaignID] = fl
	m.mu.Unlock()
	return nil
}

// Flow returns the loaded flow for a campaign.
func (m *Manager) Flow(campaignID string) (*flow.Flow, error) {
	m.mu.RLock()
	fl, ok := m.flows[campaignID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("campaign %s not loaded", campaignID)
	}
	return fl, nil
}

// Fields returns a campaign's field definitions, served from cache when
// possible.
func (m *Manager) Fields(campaignID string) ([]flow.Field, error) {
	if cached := m.cache.Get(campaignID); cached != nil {
		return cached, nil
	}

	fields, err := m.store.ListByCampaign(campaignID)
	if err != nil {
		return nil, err
	}
	m.cache.Set(campaignID, fields)
	return fields, nil
}

// ListCampaigns returns the IDs of every loaded campaign.
func (m *Manager) ListCampaigns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.flows))
	for id := range m.flows {
		ids = append(ids, id)
	}
	return ids
}

// AddField validates and persists a new field, then rebuilds the flow.
func (m *Manager) AddField(field *flow.Field) error {
	if err := ValidateField(*field); err != nil {
		return fmt.Errorf("invalid field: %w", err)
	}

	if err := m.store.Add(field); err != nil {
		return err
	}

	m.cache.Invalidate(field.CampaignID)
	return m.Reload(field.CampaignID)
}

// UpdateField validates and persists a changed field, then rebuilds the flow.
func (m *Manager) UpdateField(field *flow.Field) error {
	if err := ValidateField(*field); err != nil {
		return fmt.Errorf("invalid field: %w", err)
	}

	if err := m.store.Update(field); err != nil {
		return err
	}

	m.cache.Invalidate(field.CampaignID)
	return m.Reload(field.CampaignID)
}

// DeleteField removes a field and rebuilds the flow.
func (m *Manager) DeleteField(campaignID, key string) error {
	if err := m.store.Delete(campaignID, key); err != nil {
		return err
	}

	m.cache.Invalidate(campaignID)
	return m.Reload(campaignID)
}

// Unload drops a campaign's flow from memory. The store is untouched.
func (m *Manager) Unload(campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.flows[campaignID]; !ok {
		return fmt.Errorf("campaign %s not loaded", campaignID)
	}
	delete(m.flows, campaignID)
	m.cache.Invalidate(campaignID)
	return nil
}
