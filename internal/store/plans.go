package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KatTate/katalyst-franchise-planner/internal/plan"
)

// ErrPlanNotFound is returned when no plan has the requested id.
var ErrPlanNotFound = errors.New("plan not found")

const timestampLayout = time.RFC3339Nano

// PlanRepository persists plans. The input document and the startup cost
// list are written independently.
type PlanRepository interface {
	Create(ctx context.Context, p *plan.Plan) error
	Get(ctx context.Context, id string) (*plan.Plan, error)
	List(ctx context.Context) ([]*plan.Plan, error)
	Update(ctx context.Context, p *plan.Plan) error
	ReplaceStartupCosts(ctx context.Context, id string, items []plan.StartupCostLineItem, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// SQLitePlanRepo implements PlanRepository on SQLite.
type SQLitePlanRepo struct {
	db *sql.DB
}

var _ PlanRepository = (*SQLitePlanRepo)(nil)

// NewSQLitePlanRepo creates a repository over db.
func NewSQLitePlanRepo(db *sql.DB) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: db}
}

const planColumns = `id, name, brand_id, start_date, financial_inputs, startup_costs, created_at, updated_at`

func (r *SQLitePlanRepo) Create(ctx context.Context, p *plan.Plan) error {
	inputs, costs, err := encodeDocuments(p.FinancialInputs, p.StartupCosts)
	if err != nil {
		return err
	}

	query := `INSERT INTO plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.BrandID,
		nullableTime(p.StartDate),
		inputs,
		costs,
		p.CreatedAt.UTC().Format(timestampLayout),
		p.UpdatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (r *SQLitePlanRepo) Get(ctx context.Context, id string) (*plan.Plan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	return p, err
}

func (r *SQLitePlanRepo) List(ctx context.Context) ([]*plan.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return plans, nil
}

// Update writes the plan's name, start date and input document. Startup
// costs are left as stored.
func (r *SQLitePlanRepo) Update(ctx context.Context, p *plan.Plan) error {
	inputs, err := json.Marshal(p.FinancialInputs)
	if err != nil {
		return fmt.Errorf("encoding financial inputs: %w", err)
	}

	query := `UPDATE plans SET name = ?, start_date = ?, financial_inputs = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		p.Name,
		nullableTime(p.StartDate),
		string(inputs),
		p.UpdatedAt.UTC().Format(timestampLayout),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return requireRow(res)
}

func (r *SQLitePlanRepo) ReplaceStartupCosts(ctx context.Context, id string, items []plan.StartupCostLineItem, updatedAt time.Time) error {
	if items == nil {
		items = []plan.StartupCostLineItem{}
	}
	costs, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding startup costs: %w", err)
	}

	query := `UPDATE plans SET startup_costs = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(costs), updatedAt.UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("replacing startup costs: %w", err)
	}
	return requireRow(res)
}

func (r *SQLitePlanRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting plan: %w", err)
	}
	return requireRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(row scanner) (*plan.Plan, error) {
	var p plan.Plan
	var startDate sql.NullString
	var inputs, costs, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.BrandID, &startDate, &inputs, &costs, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}

	if err := json.Unmarshal([]byte(inputs), &p.FinancialInputs); err != nil {
		return nil, fmt.Errorf("decoding financial inputs of plan %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(costs), &p.StartupCosts); err != nil {
		return nil, fmt.Errorf("decoding startup costs of plan %s: %w", p.ID, err)
	}

	if p.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if startDate.Valid && startDate.String != "" {
		t, err := time.Parse(timestampLayout, startDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing start_date: %w", err)
		}
		p.StartDate = &t
	}
	return &p, nil
}

func encodeDocuments(inputs plan.FinancialInputs, items []plan.StartupCostLineItem) (string, string, error) {
	in, err := json.Marshal(inputs)
	if err != nil {
		return "", "", fmt.Errorf("encoding financial inputs: %w", err)
	}
	if items == nil {
		items = []plan.StartupCostLineItem{}
	}
	costs, err := json.Marshal(items)
	if err != nil {
		return "", "", fmt.Errorf("encoding startup costs: %w", err)
	}
	return string(in), string(costs), nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timestampLayout)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return ErrPlanNotFound
	}
	return nil
}
