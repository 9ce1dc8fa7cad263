package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/settlement-hub/settlement-hub/internal/domain/policy"
)

// PolicyRepository implements policy.Repository.
type PolicyRepository struct {
	pool *pgxpool.Pool
}

func NewPolicyRepository(pool *pgxpool.Pool) *PolicyRepository {
	return &PolicyRepository{pool: pool}
}

const ruleColumns = `id, rule_id, name, description, expression, status, created_at, created_by, updated_at, updated_by`

func (r *PolicyRepository) Create(ctx context.Context, rl *policy.Rule) error {
	_, err := db(ctx, r.pool).Exec(ctx, `
		INSERT INTO policy_rules
		(rule_id, name, description, expression, status, created_at, created_by, updated_at, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rl.RuleID, rl.Name, rl.Description, rl.Expression, rl.Status, rl.CreatedAt, rl.CreatedBy, rl.UpdatedAt, rl.UpdatedBy)
	return err
}

func (r *PolicyRepository) GetByRuleID(ctx context.Context, ruleID uuid.UUID) (*policy.Rule, error) {
	row := db(ctx, r.pool).QueryRow(ctx, `
		SELECT `+ruleColumns+` FROM policy_rules WHERE rule_id=$1
	`, ruleID)
	return scanRule(row)
}

func (r *PolicyRepository) List(ctx context.Context, filter policy.Filter) ([]*policy.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM policy_rules`
	args := []interface{}{}
	if filter.Status != nil {
		query += " WHERE status=$1"
		args = append(args, *filter.Status)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := db(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *PolicyRepository) ListActive(ctx context.Context) ([]*policy.Rule, error) {
	status := policy.RuleStatusActive
	return r.List(ctx, policy.Filter{Status: &status})
}

func (r *PolicyRepository) Update(ctx context.Context, rl *policy.Rule) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE policy_rules
		SET name=$1, description=$2, expression=$3, status=$4, updated_at=$5, updated_by=$6
		WHERE rule_id=$7
	`, rl.Name, rl.Description, rl.Expression, rl.Status, rl.UpdatedAt, rl.UpdatedBy, rl.RuleID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return policy.ErrNotFound
	}
	return nil
}

func (r *PolicyRepository) UpdateStatus(ctx context.Context, ruleID uuid.UUID, status policy.RuleStatus, updatedBy *string) error {
	res, err := db(ctx, r.pool).Exec(ctx, `
		UPDATE policy_rules SET status=$1, updated_at=$2, updated_by=$3 WHERE rule_id=$4
	`, status, time.Now().UTC(), updatedBy, ruleID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return policy.ErrNotFound
	}
	return nil
}

func scanRule(row pgx.Row) (*policy.Rule, error) {
	var rl policy.Rule
	if err := row.Scan(&rl.ID, &rl.RuleID, &rl.Name, &rl.Description, &rl.Expression, &rl.Status, &rl.CreatedAt, &rl.CreatedBy, &rl.UpdatedAt, &rl.UpdatedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rl, nil
}

func collectRules(rows pgx.Rows) ([]*policy.Rule, error) {
	var rules []*policy.Rule
	for rows.Next() {
		rl, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rl)
	}
	return rules, rows.Err()
}
