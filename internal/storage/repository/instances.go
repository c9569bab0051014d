package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const instanceSelect = `SELECT i.id, i.account_id, i.plan_id, p.name, p.price,
	i.start_date, i.end_date, i.language, i.attempts_left
	FROM subscription_instances i
	JOIN plans p ON p.id = i.plan_id`

func scanInstance(row rowScanner) (*models.Instance, error) {
	var (
		inst models.Instance
		left sql.NullInt32
	)
	if err := row.Scan(&inst.ID, &inst.AccountID, &inst.PlanID, &inst.PlanName, &inst.PlanPrice,
		&inst.StartDate, &inst.EndDate, &inst.Language, &left); err != nil {
		return nil, err
	}
	inst.AttemptsLeft = intPtr(left)
	return &inst, nil
}

func scanInstances(rows *sql.Rows) ([]models.Instance, error) {
	result := []models.Instance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListInstances возвращает экземпляры аккаунта в порядке начала действия.
func (s *Storage) ListInstances(ctx context.Context, accountID string) ([]models.Instance, error) {
	const op = "storage.ListInstances"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, instanceSelect+` WHERE i.account_id = $1 ORDER BY i.start_date, i.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	result, err := scanInstances(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetInstance возвращает экземпляр по ID.
func (s *Storage) GetInstance(ctx context.Context, id int64) (*models.Instance, error) {
	const op = "storage.GetInstance"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	inst, err := scanInstance(s.DB.QueryRowContext(ctx, instanceSelect+` WHERE i.id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return inst, nil
}

// ExpiredInstances возвращает экземпляры с end_date <= now.
func (s *Storage) ExpiredInstances(ctx context.Context, now time.Time) ([]models.Instance, error) {
	const op = "storage.ExpiredInstances"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx, instanceSelect+` WHERE i.end_date <= $1 ORDER BY i.account_id, i.id`, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	result, err := scanInstances(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExpiringInstances возвращает экземпляры, истекающие в окне (from, to],
// вместе с контактами владельцев.
func (s *Storage) ExpiringInstances(ctx context.Context, from, to time.Time) ([]models.ExpiringInstance, error) {
	const op = "storage.ExpiringInstances"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT i.id, i.account_id, i.plan_id, p.name, p.price,
				i.start_date, i.end_date, i.language, i.attempts_left,
				a.names, a.email, a.phone_number
			  FROM subscription_instances i
			  JOIN plans p ON p.id = i.plan_id
			  JOIN accounts a ON a.id = i.account_id
			  WHERE i.end_date > $1 AND i.end_date <= $2
			  ORDER BY i.end_date, i.id`
	rows, err := s.DB.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	var result []models.ExpiringInstance
	for rows.Next() {
		var (
			e    models.ExpiringInstance
			left sql.NullInt32
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.PlanID, &e.PlanName, &e.PlanPrice,
			&e.StartDate, &e.EndDate, &e.Language, &left,
			&e.Contact.Name, &e.Contact.Email, &e.Contact.Phone); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		e.AttemptsLeft = intPtr(left)
		e.Contact.AccountID = e.AccountID
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ExtendInstance переносит дату окончания экземпляра.
func (s *Storage) ExtendInstance(ctx context.Context, id int64, endDate time.Time) error {
	const op = "storage.ExtendInstance"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE subscription_instances SET end_date = $2 WHERE id = $1`, id, endDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return expectOneRow(op, res)
}
