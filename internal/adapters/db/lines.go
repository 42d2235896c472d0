// internal/adapters/db/lines.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
)

// lineRepository implements ports.LineRepository on Postgres.
type lineRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewLineRepository(db *Database, logger *slog.Logger) ports.LineRepository {
	return &lineRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "document_lines")),
	}
}

func (r *lineRepository) FindByDocument(ctx context.Context, documentID int64) ([]domain.DocumentLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT dl.id, dl.document_id, dl.move_id, dl.product_id, dl.uom_id,
		       dl.expected, dl.done, dl.lot_id, dl.lot_name,
		       COALESCE(lt.name, ''), dl.location_id, dl.location_dest_id,
		       dl.picked, dl.company_id
		FROM document_lines dl
		LEFT JOIN lots lt ON lt.id = dl.lot_id
		WHERE dl.document_id = $1
		ORDER BY dl.id ASC`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines of document %d: %w", documentID, err)
	}
	defer rows.Close()

	var lines []domain.DocumentLine
	for rows.Next() {
		var line domain.DocumentLine
		err := rows.Scan(
			&line.ID, &line.DocumentID, &line.MoveID, &line.ProductID, &line.UoMID,
			&line.Expected, &line.Done, &line.LotID, &line.LotName,
			&line.ResolvedLot, &line.LocationID, &line.LocationDestID,
			&line.Picked, &line.CompanyID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Write applies a staged delta to one line as a single UPDATE. Untouched
// fields stay out of the statement entirely.
func (r *lineRepository) Write(ctx context.Context, lineID int64, delta *domain.LineDelta) error {
	qb := squirrel.Update("document_lines").
		Where(squirrel.Eq{"id": lineID}).
		PlaceholderFormat(squirrel.Dollar)

	touched := false
	if delta.Done != nil {
		qb = qb.Set("done", *delta.Done)
		touched = true
	}
	if delta.Picked != nil {
		qb = qb.Set("picked", *delta.Picked)
		touched = true
	}
	if delta.CompanyID != nil {
		qb = qb.Set("company_id", *delta.CompanyID)
		touched = true
	}
	if delta.LocationID != nil {
		qb = qb.Set("location_id", *delta.LocationID)
		touched = true
	}
	if delta.LocationDestID != nil {
		qb = qb.Set("location_dest_id", *delta.LocationDestID)
		touched = true
	}
	if lotID, lotName, ok := delta.LotBinding(); ok {
		qb = qb.Set("lot_id", lotID).Set("lot_name", lotName)
		touched = true
	}
	if !touched {
		return nil
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build line update: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("failed to update line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: document line %d", domain.ErrNotFound, lineID)
	}

	r.logger.DebugContext(ctx, "line updated", slog.Int64("line_id", lineID))
	return nil
}

func (r *lineRepository) Create(ctx context.Context, line *domain.NewLine) (*domain.DocumentLine, error) {
	created := &domain.DocumentLine{
		DocumentID:     line.DocumentID,
		MoveID:         line.MoveID,
		ProductID:      line.ProductID,
		UoMID:          line.UoMID,
		Expected:       line.Expected,
		Done:           line.Done,
		LotID:          line.LotID,
		LotName:        line.LotName,
		LocationID:     line.LocationID,
		LocationDestID: line.LocationDestID,
		Picked:         line.Picked,
		CompanyID:      line.CompanyID,
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO document_lines (
			document_id, move_id, product_id, uom_id, label,
			expected, done, lot_id, lot_name,
			location_id, location_dest_id, picked, company_id
		) VALUES (
			$1, $2, $3, $4,
			(SELECT name FROM products WHERE id = $3),
			$5, $6, $7, $8, $9, $10, $11, $12
		) RETURNING id,
		            COALESCE((SELECT name FROM lots WHERE id = $7), '')`,
		line.DocumentID, line.MoveID, line.ProductID, line.UoMID,
		line.Expected, line.Done, line.LotID, line.LotName,
		line.LocationID, line.LocationDestID, line.Picked, line.CompanyID,
	).Scan(&created.ID, &created.ResolvedLot)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: document %d", domain.ErrNotFound, line.DocumentID)
		}
		return nil, fmt.Errorf("failed to insert document line: %w", err)
	}

	r.logger.DebugContext(ctx, "line created",
		slog.Int64("line_id", created.ID),
		slog.Int64("document_id", line.DocumentID),
		slog.Int64("product_id", line.ProductID))

	return created, nil
}
