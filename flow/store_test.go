package flow

import (
	"testing"
)

var _ FieldStore = (*InMemoryFieldStore)(nil)

func TestInMemoryFieldStoreCRUD(t *testing.T) {
	store := NewInMemoryFieldStore()

	field := &Field{
		CampaignID: "camp-1",
		Key:        "email",
		Label:      "Email",
		Type:       FieldEmail,
		Step:       1,
	}
	if err := store.Add(field); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	if field.CreatedAt.IsZero() || field.UpdatedAt.IsZero() {
		t.Error("Add() should stamp timestamps")
	}

	got, err := store.Get("camp-1", "email")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Label != "Email" || got.Type != FieldEmail {
		t.Errorf("Get() = %+v, want the added field", got)
	}

	updated := &Field{
		CampaignID: "camp-1",
		Key:        "email",
		Label:      "Work Email",
		Type:       FieldEmail,
		Step:       1,
	}
	if err := store.Update(updated); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.CreatedAt != field.CreatedAt {
		t.Error("Update() should preserve CreatedAt")
	}
	got, err = store.Get("camp-1", "email")
	if err != nil {
		t.Fatalf("Get() after update failed: %v", err)
	}
	if got.Label != "Work Email" {
		t.Errorf("Label = %q, want Work Email", got.Label)
	}

	if err := store.Delete("camp-1", "email"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := store.Get("camp-1", "email"); err == nil {
		t.Error("Get() after delete should fail")
	}
}

func TestInMemoryFieldStoreDuplicateKey(t *testing.T) {
	store := NewInMemoryFieldStore()

	first := &Field{CampaignID: "camp-1", Key: "name", Type: FieldText, Step: 1}
	if err := store.Add(first); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	dup := &Field{CampaignID: "camp-1", Key: "name", Type: FieldText, Step: 2}
	if err := store.Add(dup); err == nil {
		t.Error("duplicate key in the same campaign should be rejected")
	}

	// same key in another campaign is fine
	other := &Field{CampaignID: "camp-2", Key: "name", Type: FieldText, Step: 1}
	if err := store.Add(other); err != nil {
		t.Errorf("same key in a different campaign should succeed: %v", err)
	}
}

func TestInMemoryFieldStoreListOrdering(t *testing.T) {
	store := NewInMemoryFieldStore()

	add := func(key string, step, sortOrder int) {
		t.Helper()
		err := store.Add(&Field{CampaignID: "camp-1", Key: key, Type: FieldText, Step: step, SortOrder: sortOrder})
		if err != nil {
			t.Fatalf("Add(%s) failed: %v", key, err)
		}
	}
	add("c", 2, 0)
	add("b", 1, 2)
	add("a", 1, 1)

	fields, err := store.ListByCampaign("camp-1")
	if err != nil {
		t.Fatalf("ListByCampaign() failed: %v", err)
	}
	want := []string{"a", "b", "c"}
	if got := fieldKeys(fields); !containsAll(got, want) || len(got) != len(want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	for i, key := range want {
		if fields[i].Key != key {
			t.Errorf("fields[%d].Key = %s, want %s", i, fields[i].Key, key)
		}
	}
}

func TestInMemoryFieldStoreListCampaigns(t *testing.T) {
	store := NewInMemoryFieldStore()

	ids, err := store.ListCampaigns()
	if err != nil {
		t.Fatalf("ListCampaigns() failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("empty store should list no campaigns, got %v", ids)
	}

	for _, id := range []string{"beta", "alpha"} {
		err := store.Add(&Field{CampaignID: id, Key: "name", Type: FieldText, Step: 1})
		if err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}
	ids, err = store.ListCampaigns()
	if err != nil {
		t.Fatalf("ListCampaigns() failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("ids = %v, want [alpha beta]", ids)
	}
}

func containsAll(got, want []string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
