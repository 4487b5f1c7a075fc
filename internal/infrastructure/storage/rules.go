package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nitindhyani1996/recon-backend/internal/recon"
)

// SaveRule inserts a new rule version and returns it with its assigned id.
func (s *Storage) SaveRule(ctx context.Context, rule *recon.Rule) (*recon.Rule, error) {
	basic, err := marshalJSONColumn(rule.BasicDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode basic details: %w", err)
	}
	classification, err := marshalJSONColumn(rule.Classification)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification: %w", err)
	}
	condition, err := json.Marshal(rule.MatchCondition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match condition: %w", err)
	}
	tolerance, err := json.Marshal(rule.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tolerance: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO matching_rules (
			basic_details, classification, rule_category,
			match_condition, tolerance, added_by
		) VALUES (?, ?, ?, ?, ?, ?)
	`, basic, classification, rule.Category, string(condition), string(tolerance), rule.Owner)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get rule id: %w", err)
	}

	saved := *rule
	saved.ID = id
	return &saved, nil
}

// UpdateRule applies a partial update to an existing rule and returns
// the updated rule. Returns (nil, nil) when the rule does not exist.
func (s *Storage) UpdateRule(ctx context.Context, id int64, update RuleUpdate) (*recon.Rule, error) {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if update.BasicDetails != nil {
		existing.BasicDetails = *update.BasicDetails
	}
	if update.Classification != nil {
		existing.Classification = *update.Classification
	}
	if update.Category != nil {
		existing.Category = *update.Category
	}
	if update.MatchCondition != nil {
		existing.MatchCondition = *update.MatchCondition
	}
	if update.Tolerance != nil {
		existing.Tolerance = *update.Tolerance
	}
	if update.Owner != nil {
		existing.Owner = *update.Owner
	}

	basic, err := marshalJSONColumn(existing.BasicDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode basic details: %w", err)
	}
	classification, err := marshalJSONColumn(existing.Classification)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classification: %w", err)
	}
	condition, err := json.Marshal(existing.MatchCondition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode match condition: %w", err)
	}
	tolerance, err := json.Marshal(existing.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tolerance: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE matching_rules
		SET basic_details = ?, classification = ?, rule_category = ?,
		    match_condition = ?, tolerance = ?, added_by = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, basic, classification, existing.Category, string(condition), string(tolerance), existing.Owner, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}
	return existing, nil
}

// GetRule returns one rule by id, or (nil, nil) if it does not exist.
func (s *Storage) GetRule(ctx context.Context, id int64) (*recon.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, basic_details, classification, rule_category,
		       match_condition, tolerance, added_by
		FROM matching_rules
		WHERE id = ?
	`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

// ListRules returns stored rules newest first, optionally filtered by
// owner and category (category < 0 means any).
func (s *Storage) ListRules(ctx context.Context, owner string, category int) ([]*recon.Rule, error) {
	query := `
		SELECT id, basic_details, classification, rule_category,
		       match_condition, tolerance, added_by
		FROM matching_rules
		WHERE 1=1
	`
	var args []any
	if owner != "" {
		query += " AND added_by = ?"
		args = append(args, owner)
	}
	if category >= 0 {
		query += " AND rule_category = ?"
		args = append(args, category)
	}
	query += " ORDER BY id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []*recon.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetActiveRule returns the newest rule for one (owner, category) pair,
// or (nil, nil) when that pair has no rules. Rules are versioned per
// owner and category; the highest id is the active version.
func (s *Storage) GetActiveRule(ctx context.Context, owner string, category int) (*recon.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, basic_details, classification, rule_category,
		       match_condition, tolerance, added_by
		FROM matching_rules
		WHERE added_by = ? AND rule_category = ?
		ORDER BY id DESC
		LIMIT 1
	`, owner, category)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rule, err
}

// SourceFields lists the matchable columns of one source feed straight
// from the table schema, so the rule editor always reflects the real
// columns.
func (s *Storage) SourceFields(ctx context.Context, source recon.Source) ([]SourceField, error) {
	table, err := tableFor(source)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name, type FROM pragma_table_info(?)", table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table info for %s: %w", table, err)
	}
	defer rows.Close()

	var fields []SourceField
	for rows.Next() {
		var f SourceField
		if err := rows.Scan(&f.ColumnName, &f.Type); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		switch f.ColumnName {
		case "id", "uploaded_by", "created_at", "updated_at":
			continue
		}
		fields = append(fields, f)
	}
	return fields, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*recon.Rule, error) {
	var (
		rule                        recon.Rule
		basic, classification       string
		condition, tolerance, owner string
	)
	if err := row.Scan(&rule.ID, &basic, &classification, &rule.Category,
		&condition, &tolerance, &owner); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan rule: %w", err)
	}
	rule.Owner = owner

	if err := json.Unmarshal([]byte(basic), &rule.BasicDetails); err != nil {
		return nil, fmt.Errorf("failed to decode basic details: %w", err)
	}
	if err := json.Unmarshal([]byte(classification), &rule.Classification); err != nil {
		return nil, fmt.Errorf("failed to decode classification: %w", err)
	}
	if err := json.Unmarshal([]byte(condition), &rule.MatchCondition); err != nil {
		return nil, fmt.Errorf("failed to decode match condition: %w", err)
	}
	if err := json.Unmarshal([]byte(tolerance), &rule.Tolerance); err != nil {
		return nil, fmt.Errorf("failed to decode tolerance: %w", err)
	}
	return &rule, nil
}

// marshalJSONColumn encodes a map column, storing "{}" for nil so the
// NOT NULL columns always hold valid JSON.
func marshalJSONColumn(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
