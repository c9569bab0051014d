package repository

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// ListAttempts возвращает попытки аккаунта, новые первыми.
func (s *Storage) ListAttempts(ctx context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error) {
	const op = "storage.ListAttempts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, account_id, attempt_date, score FROM exam_attempts
		 WHERE account_id = $1
		 ORDER BY attempt_date DESC, id DESC
		 LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	attempts := []models.ExamAttempt{}
	for rows.Next() {
		var a models.ExamAttempt
		if err := rows.Scan(&a.ID, &a.AccountID, &a.AttemptDate, &a.Score); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// ListAllAttempts возвращает попытки всех аккаунтов вместе с именем и email
// владельца, новые первыми.
func (s *Storage) ListAllAttempts(ctx context.Context, limit, offset int) ([]models.AttemptWithOwner, error) {
	const op = "storage.ListAllAttempts"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT e.id, e.account_id, e.attempt_date, e.score, a.names, a.email
		 FROM exam_attempts e
		 JOIN accounts a ON a.id = e.account_id
		 ORDER BY e.attempt_date DESC, e.id DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	attempts := []models.AttemptWithOwner{}
	for rows.Next() {
		var a models.AttemptWithOwner
		if err := rows.Scan(&a.ID, &a.AccountID, &a.AttemptDate, &a.Score, &a.Names, &a.Email); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// AttemptStats возвращает количество попыток и лучший результат.
func (s *Storage) AttemptStats(ctx context.Context, accountID string) (models.ExamStats, error) {
	const op = "storage.AttemptStats"
	select {
	case <-ctx.Done():
		return models.ExamStats{}, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var stats models.ExamStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(score), 0) FROM exam_attempts WHERE account_id = $1`,
		accountID).Scan(&stats.TotalAttempts, &stats.MaxScore)
	if err != nil {
		return models.ExamStats{}, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return stats, nil
}
