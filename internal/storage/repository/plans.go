package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const planColumns = `id, name, price, exam_attempts_limit, validity_days, created_at`

func scanPlan(row rowScanner) (*models.Plan, error) {
	var (
		p     models.Plan
		limit sql.NullInt32
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &limit, &p.ValidityDays, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.ExamAttemptsLimit = intPtr(limit)
	return &p, nil
}

// CreatePlan добавляет план в каталог и возвращает его ID.
func (s *Storage) CreatePlan(ctx context.Context, plan models.Plan) (int64, error) {
	const op = "storage.CreatePlan"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var id int64
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO plans (name, price, exam_attempts_limit, validity_days) VALUES ($1, $2, $3, $4) RETURNING id`,
		plan.Name, plan.Price, nullableInt(plan.ExamAttemptsLimit), plan.ValidityDays).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetPlan возвращает план по ID.
func (s *Storage) GetPlan(ctx context.Context, id int64) (*models.Plan, error) {
	const op = "storage.GetPlan"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	plan, err := scanPlan(s.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return plan, nil
}

// UpdatePlan обновляет план. Уже выданные экземпляры не меняются.
func (s *Storage) UpdatePlan(ctx context.Context, id int64, plan models.Plan) error {
	const op = "storage.UpdatePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE plans SET name = $2, price = $3, exam_attempts_limit = $4, validity_days = $5 WHERE id = $1`,
		id, plan.Name, plan.Price, nullableInt(plan.ExamAttemptsLimit), plan.ValidityDays)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return expectOneRow(op, res)
}

// RemovePlan удаляет план. План, на который ссылаются экземпляры, удалить нельзя.
func (s *Storage) RemovePlan(ctx context.Context, id int64) error {
	const op = "storage.RemovePlan"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return expectOneRow(op, res)
}

// ListPlans возвращает каталог, отфильтрованный по цене и сроку действия.
func (s *Storage) ListPlans(ctx context.Context, filter models.PlanFilter) ([]models.Plan, error) {
	const op = "storage.ListPlans"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var (
		conds []string
		args  []any
	)
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conds = append(conds, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("price <= $%d", len(args)))
	}
	if filter.ValidityDays != nil {
		args = append(args, *filter.ValidityDays)
		conds = append(conds, fmt.Sprintf("validity_days = $%d", len(args)))
	}

	query := `SELECT ` + planColumns + ` FROM plans`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY price, id`

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	plans := []models.Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return plans, nil
}
