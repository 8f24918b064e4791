package flow

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresFieldStore implements FieldStore backed by PostgreSQL. Rich
// columns (options, validation rules, branching logic) are stored as JSONB.
type PostgresFieldStore struct {
	db *sql.DB
}

// NewPostgresFieldStore creates a new PostgreSQL-backed FieldStore.
func NewPostgresFieldStore(db *sql.DB) *PostgresFieldStore {
	return &PostgresFieldStore{db: db}
}

const fieldColumns = `id, campaign_id, field_key, field_label, field_type,
	field_options, is_required, step_number, sort_order,
	validation_rules, branching_logic, created_at, updated_at`

// Add inserts a new field definition.
func (s *PostgresFieldStore) Add(field *Field) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM onboarding_fields WHERE campaign_id = $1 AND field_key = $2)
	`, field.CampaignID, field.Key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check field existence: %w", err)
	}
	if exists {
		return fmt.Errorf("field %q already exists in campaign %s", field.Key, field.CampaignID)
	}

	options, rules, logic, err := marshalFieldJSON(field)
	if err != nil {
		return err
	}

	now := time.Now()
	field.CreatedAt = now
	field.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO onboarding_fields
			(id, campaign_id, field_key, field_label, field_type, field_options,
			 is_required, step_number, sort_order, validation_rules, branching_logic,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, field.ID, field.CampaignID, field.Key, field.Label, string(field.Type), options,
		field.Required, field.Step, field.SortOrder, rules, logic,
		field.CreatedAt, field.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert field: %w", err)
	}
	return nil
}

// Get retrieves a field by campaign and key.
func (s *PostgresFieldStore) Get(campaignID, key string) (*Field, error) {
	row := s.db.QueryRow(`
		SELECT `+fieldColumns+`
		FROM onboarding_fields
		WHERE campaign_id = $1 AND field_key = $2
	`, campaignID, key)

	field, err := scanField(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("field %q not found in campaign %s", key, campaignID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get field: %w", err)
	}
	return field, nil
}

// ListByCampaign returns a campaign's fields ordered by step, sort order.
func (s *PostgresFieldStore) ListByCampaign(campaignID string) ([]Field, error) {
	rows, err := s.db.Query(`
		SELECT `+fieldColumns+`
		FROM onboarding_fields
		WHERE campaign_id = $1
		ORDER BY step_number ASC, sort_order ASC, field_key ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fields: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		field, err := scanField(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field: %w", err)
		}
		fields = append(fields, *field)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fields: %w", err)
	}
	return fields, nil
}

// ListCampaigns returns every campaign ID with at least one field.
func (s *PostgresFieldStore) ListCampaigns() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT campaign_id FROM onboarding_fields ORDER BY campaign_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}
	return ids, nil
}

// Update modifies an existing field definition.
func (s *PostgresFieldStore) Update(field *Field) error {
	options, rules, logic, err := marshalFieldJSON(field)
	if err != nil {
		return err
	}

	field.UpdatedAt = time.Now()

	result, err := s.db.Exec(`
		UPDATE onboarding_fields
		SET field_label = $1, field_type = $2, field_options = $3, is_required = $4,
		    step_number = $5, sort_order = $6, validation_rules = $7,
		    branching_logic = $8, updated_at = $9
		WHERE campaign_id = $10 AND field_key = $11
	`, field.Label, string(field.Type), options, field.Required,
		field.Step, field.SortOrder, rules, logic, field.UpdatedAt,
		field.CampaignID, field.Key)
	if err != nil {
		return fmt.Errorf("failed to update field: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("field %q not found in campaign %s", field.Key, field.CampaignID)
	}
	return nil
}

// Delete removes a field definition.
func (s *PostgresFieldStore) Delete(campaignID, key string) error {
	result, err := s.db.Exec(`
		DELETE FROM onboarding_fields
		WHERE campaign_id = $1 AND field_key = $2
	`, campaignID, key)
	if err != nil {
		return fmt.Errorf("failed to delete field: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("field %q not found in campaign %s", key, campaignID)
	}
	return nil
}

func marshalFieldJSON(field *Field) (options, rules, logic []byte, err error) {
	if options, err = json.Marshal(field.Options); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal options: %w", err)
	}
	if rules, err = json.Marshal(field.ValidationRules); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal validation rules: %w", err)
	}
	if logic, err = json.Marshal(field.BranchingRules); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal branching logic: %w", err)
	}
	return options, rules, logic, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanField(row rowScanner) (*Field, error) {
	var (
		field   Field
		ftype   string
		options []byte
		rules   []byte
		logic   []byte
	)
	err := row.Scan(
		&field.ID, &field.CampaignID, &field.Key, &field.Label, &ftype,
		&options, &field.Required, &field.Step, &field.SortOrder,
		&rules, &logic, &field.CreatedAt, &field.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	field.Type = FieldType(ftype)

	if len(options) > 0 {
		if err := json.Unmarshal(options, &field.Options); err != nil {
			return nil, fmt.Errorf("invalid field_options: %w", err)
		}
	}
	if len(rules) > 0 {
		parsed, err := ParseValidationRules(rules)
		if err != nil {
			return nil, fmt.Errorf("invalid validation_rules: %w", err)
		}
		field.ValidationRules = parsed
	}
	if len(logic) > 0 {
		if err := json.Unmarshal(logic, &field.BranchingRules); err != nil {
			return nil, fmt.Errorf("invalid branching_logic: %w", err)
		}
	}
	return &field, nil
}
