package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentService hands out gapless, per-year document numbers such as INV-2026-00042.
type DocumentService interface {
	// NextNumber reserves a number in its own transaction. Use for standalone calls.
	NextNumber(ctx context.Context, prefix string, year int) (string, error)
	// NextNumberTx reserves a number inside the caller's transaction, so a
	// rollback of the caller also releases the number and no gap appears.
	NextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, year int) (string, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

func (s *documentService) NextNumber(ctx context.Context, prefix string, year int) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	num, err := nextNumberTx(ctx, tx, prefix, year)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return num, nil
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, year int) (string, error) {
	return nextNumberTx(ctx, tx, prefix, year)
}

func nextNumberTx(ctx context.Context, tx pgx.Tx, prefix string, year int) (string, error) {
	// Concurrency-safe gapless sequence generation: the upsert row-locks the
	// (prefix, year) counter until the caller's transaction ends.
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (prefix, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, prefix, year).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return formatDocumentNumber(prefix, year, lastNumber), nil
}

func formatDocumentNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}
