// internal/adapters/db/lots.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// lotRepository implements ports.LotRepository on Postgres.
type lotRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewLotRepository(db *Database, logger *slog.Logger) ports.LotRepository {
	return &lotRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "lots")),
	}
}

func (r *lotRepository) FindByName(ctx context.Context, name string, productID, companyID int64) (*domain.Lot, error) {
	lot := &domain.Lot{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, product_id, company_id
		FROM lots
		WHERE name = $1 AND product_id = $2 AND company_id = $3`,
		name, productID, companyID,
	).Scan(&lot.ID, &lot.Name, &lot.ProductID, &lot.CompanyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lot %q: %w", name, err)
	}
	return lot, nil
}

func (r *lotRepository) Rename(ctx context.Context, lotID int64, newName string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE lots SET name = $2 WHERE id = $1`,
		lotID, newName)
	if err != nil {
		return fmt.Errorf("failed to rename lot %d: %w", lotID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lot %d", domain.ErrNotFound, lotID)
	}

	r.logger.DebugContext(ctx, "lot renamed",
		slog.Int64("lot_id", lotID),
		slog.String("name", newName))
	return nil
}
