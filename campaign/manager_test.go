package campaign

import (
	"strings"
	"testing"

	"github.com/virionlabs/onboardflow/flow"
)

func seedStore(t *testing.T) *flow.InMemoryFieldStore {
	t.Helper()
	store := flow.NewInMemoryFieldStore()

	fields := []*flow.Field{
		{
			CampaignID: "camp-1",
			Key:        "level",
			Label:      "Experience Level",
			Type:       flow.FieldSelect,
			Options:    []string{"Beginner", "Advanced"},
			Step:       1,
			BranchingRules: []flow.BranchingRule{{
				Condition:    &flow.Condition{FieldKey: "level", Operator: flow.OpEquals, Value: "Advanced"},
				Action:       flow.ActionShow,
				TargetFields: []string{"github"},
			}},
		},
		{CampaignID: "camp-1", Key: "github", Label: "GitHub", Type: flow.FieldURL, Step: 1},
		{CampaignID: "camp-2", Key: "name", Label: "Name", Type: flow.FieldText, Step: 1},
	}
	for _, f := range fields {
		if err := store.Add(f); err != nil {
			t.Fatalf("Add(%s) failed: %v", f.Key, err)
		}
	}
	return store
}

func TestManagerLoadAll(t *testing.T) {
	manager := NewManager(seedStore(t))
	if err := manager.LoadAll(); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	if got := manager.ListCampaigns(); len(got) != 2 {
		t.Errorf("ListCampaigns() = %v, want 2 campaigns", got)
	}

	fl, err := manager.Flow("camp-1")
	if err != nil {
		t.Fatalf("Flow() failed: %v", err)
	}
	state := fl.Evaluate(flow.Responses{"level": "Advanced"})
	if !state.IsVisible("github") {
		t.Error("loaded flow should evaluate the campaign's rules")
	}

	if _, err := manager.Flow("camp-404"); err == nil {
		t.Error("Flow() for an unloaded campaign should fail")
	}
}

func TestManagerLoadAllRejectsBadDefinitions(t *testing.T) {
	store := flow.NewInMemoryFieldStore()
	bad := &flow.Field{CampaignID: "camp-1", Key: "broken", Type: "dropdown", Step: 1}
	if err := store.Add(bad); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	err := NewManager(store).LoadAll()
	if err == nil || !strings.Contains(err.Error(), "invalid definitions") {
		t.Errorf("LoadAll() = %v, want invalid definitions error", err)
	}
}

func TestManagerAddFieldReloads(t *testing.T) {
	manager := NewManager(seedStore(t))
	if err := manager.LoadAll(); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	err := manager.AddField(&flow.Field{
		CampaignID: "camp-2",
		Key:        "company",
		Label:      "Company",
		Type:       flow.FieldText,
		Step:       2,
	})
	if err != nil {
		t.Fatalf("AddField() failed: %v", err)
	}

	fl, err := manager.Flow("camp-2")
	if err != nil {
		t.Fatalf("Flow() failed: %v", err)
	}
	if fl.MaxStep() != 2 {
		t.Errorf("MaxStep() = %d, want 2 after adding a step-2 field", fl.MaxStep())
	}

	fields, err := manager.Fields("camp-2")
	if err != nil {
		t.Fatalf("Fields() failed: %v", err)
	}
	if len(fields) != 2 {
		t.Errorf("Fields() returned %d fields, want 2", len(fields))
	}
}

func TestManagerAddFieldRejectsInvalid(t *testing.T) {
	manager := NewManager(seedStore(t))
	if err := manager.LoadAll(); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	err := manager.AddField(&flow.Field{CampaignID: "camp-2", Key: "bad key", Type: flow.FieldText, Step: 1})
	if err == nil {
		t.Fatal("AddField() with a malformed key should fail")
	}

	// the store must be untouched
	fields, err := manager.Fields("camp-2")
	if err != nil {
		t.Fatalf("Fields() failed: %v", err)
	}
	if len(fields) != 1 {
		t.Errorf("Fields() returned %d fields, want the original 1", len(fields))
	}
}

func TestManagerUpdateAndDeleteField(t *testing.T) {
	manager := NewManager(seedStore(t))
	if err := manager.LoadAll(); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	err := manager.UpdateField(&flow.Field{
		CampaignID: "camp-2",
		Key:        "name",
		Label:      "Full Name",
		Type:       flow.FieldText,
		Step:       1,
	})
	if err != nil {
		t.Fatalf("UpdateField() failed: %v", err)
	}
	fl, err := manager.Flow("camp-2")
	if err != nil {
		t.Fatalf("Flow() failed: %v", err)
	}
	if f, ok := fl.Field("name"); !ok || f.Label != "Full Name" {
		t.Errorf("Field(name) = %+v, want the updated label", f)
	}

	if err := manager.DeleteField("camp-2", "name"); err != nil {
		t.Fatalf("DeleteField() failed: %v", err)
	}
	fl, err = manager.Flow("camp-2")
	if err != nil {
		t.Fatalf("Flow() failed: %v", err)
	}
	if _, ok := fl.Field("name"); ok {
		t.Error("deleted field should be gone from the rebuilt flow")
	}
}

func TestManagerUnload(t *testing.T) {
	manager := NewManager(seedStore(t))
	if err := manager.LoadAll(); err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}

	if err := manager.Unload("camp-1"); err != nil {
		t.Fatalf("Unload() failed: %v", err)
	}
	if _, err := manager.Flow("camp-1"); err == nil {
		t.Error("unloaded campaign should not resolve a flow")
	}
	if err := manager.Unload("camp-1"); err == nil {
		t.Error("double unload should fail")
	}

	// store keeps the definitions, reload brings the flow back
	if err := manager.Reload("camp-1"); err != nil {
		t.Fatalf("Reload() failed: %v", err)
	}
	if _, err := manager.Flow("camp-1"); err != nil {
		t.Errorf("Flow() after reload failed: %v", err)
	}
}
