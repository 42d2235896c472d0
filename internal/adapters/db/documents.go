// internal/adapters/db/documents.go
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// documentRepository implements ports.DocumentRepository on Postgres.
type documentRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewDocumentRepository(db *Database, logger *slog.Logger) ports.DocumentRepository {
	return &documentRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "documents")),
	}
}

var documentColumns = columnMap{
	"id":               "d.id",
	"name":             "d.name",
	"category":         "d.category",
	"state":            "d.state",
	"company_id":       "d.company_id",
	"location_id.name": "sl.name",
}

const documentSelect = `
	SELECT d.id, d.name, d.category, d.state,
	       d.location_id, d.location_dest_id, d.company_id,
	       d.partner_id, d.origin
	FROM documents d
	LEFT JOIN locations sl ON sl.id = d.location_id`

func (r *documentRepository) FindByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.db.QueryRow(ctx, documentSelect+" WHERE d.id = $1", id)

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return doc, nil
}

func (r *documentRepository) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Document, error) {
	where, err := renderPredicates(pred, documentColumns)
	if err != nil {
		return nil, err
	}

	order := "d.id ASC"
	if opts.Descending {
		order = "d.id DESC"
	}

	qb := squirrel.Select(
		"d.id", "d.name", "d.category", "d.state",
		"d.location_id", "d.location_dest_id", "d.company_id",
		"d.partner_id", "d.origin",
	).From("documents d").
		LeftJoin("locations sl ON sl.id = d.location_id").
		Where(where).
		OrderBy(order).
		PlaceholderFormat(squirrel.Dollar)

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		qb = qb.Offset(uint64(opts.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build document query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *documentRepository) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	where, err := renderPredicates(pred, documentColumns)
	if err != nil {
		return 0, err
	}

	sql, args, err := squirrel.Select("COUNT(*)").
		From("documents d").
		LeftJoin("locations sl ON sl.id = d.location_id").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build document count: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Create builds a device-originated document: locations come from the
// warehouse (stock side) and the category's counterparty virtual location,
// expected lines from the grouped actual quantities.
func (r *documentRepository) Create(ctx context.Context, nd ports.NewDocument, seeds []ports.ExpectedLineSeed) (*domain.Document, error) {
	var doc *domain.Document

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var stockLocID int64
		err := tx.QueryRow(ctx,
			`SELECT stock_location_id FROM warehouses WHERE id = $1`,
			nd.WarehouseID).Scan(&stockLocID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: warehouse %d", domain.ErrNotFound, nd.WarehouseID)
		}
		if err != nil {
			return fmt.Errorf("failed to load warehouse %d: %w", nd.WarehouseID, err)
		}

		counterpartUsage := "supplier"
		if nd.Category == domain.CategoryShip {
			counterpartUsage = "customer"
		}
		var virtualLocID int64
		err = tx.QueryRow(ctx,
			`SELECT id FROM locations WHERE usage = $1 ORDER BY id LIMIT 1`,
			counterpartUsage).Scan(&virtualLocID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: no %s location configured", domain.ErrNotFound, counterpartUsage)
		}
		if err != nil {
			return fmt.Errorf("failed to find %s location: %w", counterpartUsage, err)
		}

		locationID, locationDestID := virtualLocID, stockLocID
		if nd.Category == domain.CategoryShip {
			locationID, locationDestID = stockLocID, virtualLocID
		}

		doc = &domain.Document{
			Category:       nd.Category,
			State:          domain.StateAssigned,
			LocationID:     locationID,
			LocationDestID: locationDestID,
			CompanyID:      nd.CompanyID,
			PartnerID:      &nd.PartnerID,
			Origin:         nd.Origin,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO documents (
				name, category, state, location_id, location_dest_id,
				company_id, partner_id, warehouse_id, origin
			) VALUES (
				'', $1, $2, $3, $4, $5, $6, $7, $8
			) RETURNING id`,
			doc.Category, doc.State, locationID, locationDestID,
			nd.CompanyID, nd.PartnerID, nd.WarehouseID, nd.Origin,
		).Scan(&doc.ID)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		doc.Name = fmt.Sprintf("%s/%05d", doc.Category, doc.ID)
		if _, err := tx.Exec(ctx,
			`UPDATE documents SET name = $2 WHERE id = $1`,
			doc.ID, doc.Name); err != nil {
			return fmt.Errorf("failed to name document: %w", err)
		}

		batch := &pgx.Batch{}
		for _, seed := range seeds {
			batch.Queue(`
				INSERT INTO document_lines (
					document_id, product_id, uom_id, label,
					expected, done, location_id, location_dest_id, company_id
				) VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)`,
				doc.ID, seed.ProductID, seed.UoMID, seed.Label,
				seed.Expected, locationID, locationDestID, nd.CompanyID)
		}
		br := tx.SendBatch(ctx, batch)
		defer br.Close()
		for range seeds {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to seed document line: %w", err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "document created",
		slog.Int64("document_id", doc.ID),
		slog.String("category", string(doc.Category)),
		slog.Int("lines", len(seeds)))

	return doc, nil
}

// Commit transitions a document to done. Unfulfilled quantity on
// non-exempt lines splits off into a backorder document; exempt lines are
// trimmed to their fulfilled quantity instead. Fulfilled quantity is
// applied to on-hand stock on whichever sides are internal locations.
func (r *documentRepository) Commit(ctx context.Context, id int64, opts ports.CommitOptions) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		var state domain.DocumentState
		err := tx.QueryRow(ctx,
			`SELECT state FROM documents WHERE id = $1 FOR UPDATE`,
			id).Scan(&state)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to lock document %d: %w", id, err)
		}
		if state == domain.StateDone {
			// Re-processing a finished document is a no-op.
			return nil
		}
		if state == domain.StateCancel {
			return fmt.Errorf("%w: document %d is cancelled", domain.ErrConflict, id)
		}

		if !opts.SkipOverProcessedCheck {
			var over int64
			if err := tx.QueryRow(ctx,
				`SELECT COUNT(*) FROM document_lines WHERE document_id = $1 AND done > expected`,
				id).Scan(&over); err != nil {
				return fmt.Errorf("failed to check over-processed lines: %w", err)
			}
			if over > 0 {
				return fmt.Errorf("%w: document %d has over-processed lines", domain.ErrConflict, id)
			}
		}

		if err := r.materializeLots(ctx, tx, id); err != nil {
			return err
		}
		if err := r.splitBackorder(ctx, tx, id, opts); err != nil {
			return err
		}
		if err := r.applyStock(ctx, tx, id); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE documents SET state = $2, updated_at = now() WHERE id = $1`,
			id, domain.StateDone); err != nil {
			return fmt.Errorf("failed to finish document %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.InfoContext(ctx, "document committed",
		slog.Int64("document_id", id),
		slog.Bool("suppress_backorders", opts.SuppressBackorders))
	return nil
}

// materializeLots turns deferred free-text lot names into lot rows and
// rebinds the lines by reference. Runs before stock application so the
// resulting quant buckets carry the lot identity.
func (r *documentRepository) materializeLots(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lots (name, product_id, company_id)
		SELECT DISTINCT lot_name, product_id, company_id
		FROM document_lines
		WHERE document_id = $1 AND lot_id IS NULL AND lot_name <> ''
		ON CONFLICT (name, product_id, company_id) DO NOTHING`,
		id)
	if err != nil {
		return fmt.Errorf("failed to create lots: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE document_lines dl
		SET lot_id = l.id, lot_name = ''
		FROM lots l
		WHERE dl.document_id = $1 AND dl.lot_id IS NULL AND dl.lot_name <> ''
		  AND l.name = dl.lot_name
		  AND l.product_id = dl.product_id
		  AND l.company_id = dl.company_id`,
		id)
	if err != nil {
		return fmt.Errorf("failed to bind lines to lots: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		r.logger.InfoContext(ctx, "deferred lots materialized",
			slog.Int64("document_id", id),
			slog.Int64("lines", n))
	}
	return nil
}

func (r *documentRepository) splitBackorder(ctx context.Context, tx pgx.Tx, id int64, opts ports.CommitOptions) error {
	exempt := opts.ExemptLineIDs
	if exempt == nil {
		exempt = []int64{}
	}

	if opts.SuppressBackorders {
		// Unfinished quantity is abandoned: expectations shrink to match.
		_, err := tx.Exec(ctx,
			`UPDATE document_lines SET expected = done WHERE document_id = $1 AND done < expected`,
			id)
		if err != nil {
			return fmt.Errorf("failed to trim unfulfilled lines: %w", err)
		}
		return nil
	}

	rows, err := tx.Query(ctx, `
		SELECT id, product_id, uom_id, label, expected - done,
		       location_id, location_dest_id, company_id
		FROM document_lines
		WHERE document_id = $1 AND done < expected AND NOT (id = ANY($2))
		ORDER BY id`,
		id, exempt)
	if err != nil {
		return fmt.Errorf("failed to find unfulfilled lines: %w", err)
	}
	defer rows.Close()

	type remainder struct {
		lineID    int64
		seed      ports.ExpectedLineSeed
		locID     int64
		locDestID int64
		companyID int64
	}
	var remainders []remainder
	for rows.Next() {
		var rem remainder
		if err := rows.Scan(&rem.lineID, &rem.seed.ProductID, &rem.seed.UoMID,
			&rem.seed.Label, &rem.seed.Expected,
			&rem.locID, &rem.locDestID, &rem.companyID); err != nil {
			return fmt.Errorf("failed to scan unfulfilled line: %w", err)
		}
		remainders = append(remainders, rem)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	// Exempt lines still shrink so the document validates cleanly.
	if _, err := tx.Exec(ctx,
		`UPDATE document_lines SET expected = done WHERE document_id = $1 AND done < expected AND id = ANY($2)`,
		id, exempt); err != nil {
		return fmt.Errorf("failed to trim exempt lines: %w", err)
	}

	if len(remainders) == 0 {
		return nil
	}

	var backID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO documents (
			name, category, state, location_id, location_dest_id,
			company_id, partner_id, warehouse_id, origin
		)
		SELECT name || '/BACK', category, $2, location_id, location_dest_id,
		       company_id, partner_id, warehouse_id, origin
		FROM documents WHERE id = $1
		RETURNING id`,
		id, domain.StateAssigned).Scan(&backID)
	if err != nil {
		return fmt.Errorf("failed to create backorder: %w", err)
	}

	for _, rem := range remainders {
		if _, err := tx.Exec(ctx, `
			INSERT INTO document_lines (
				document_id, product_id, uom_id, label,
				expected, done, location_id, location_dest_id, company_id
			) VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)`,
			backID, rem.seed.ProductID, rem.seed.UoMID, rem.seed.Label,
			rem.seed.Expected, rem.locID, rem.locDestID, rem.companyID); err != nil {
			return fmt.Errorf("failed to move line %d to backorder: %w", rem.lineID, err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE document_lines SET expected = done WHERE id = $1`,
			rem.lineID); err != nil {
			return fmt.Errorf("failed to trim line %d: %w", rem.lineID, err)
		}
	}

	r.logger.InfoContext(ctx, "backorder created",
		slog.Int64("document_id", id),
		slog.Int64("backorder_id", backID),
		slog.Int("lines", len(remainders)))
	return nil
}

// applyStock moves fulfilled quantity between on-hand buckets. Only
// internal locations carry stock; virtual counterparty locations are
// sources and sinks without buckets.
func (r *documentRepository) applyStock(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_quants (product_id, location_id, lot_id, uom_id, quantity)
		SELECT dl.product_id, dl.location_dest_id, dl.lot_id, dl.uom_id, dl.done
		FROM document_lines dl
		JOIN locations loc ON loc.id = dl.location_dest_id
		WHERE dl.document_id = $1 AND dl.done > 0 AND loc.usage = 'internal'
		ON CONFLICT (product_id, location_id, COALESCE(lot_id, 0), uom_id)
		DO UPDATE SET quantity = stock_quants.quantity + EXCLUDED.quantity,
		              write_date = now()`,
		id)
	if err != nil {
		return fmt.Errorf("failed to add stock: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_quants (product_id, location_id, lot_id, uom_id, quantity)
		SELECT dl.product_id, dl.location_id, dl.lot_id, dl.uom_id, -dl.done
		FROM document_lines dl
		JOIN locations loc ON loc.id = dl.location_id
		WHERE dl.document_id = $1 AND dl.done > 0 AND loc.usage = 'internal'
		ON CONFLICT (product_id, location_id, COALESCE(lot_id, 0), uom_id)
		DO UPDATE SET quantity = stock_quants.quantity + EXCLUDED.quantity,
		              write_date = now()`,
		id)
	if err != nil {
		return fmt.Errorf("failed to remove stock: %w", err)
	}
	return nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	doc := &domain.Document{}
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.Category, &doc.State,
		&doc.LocationID, &doc.LocationDestID, &doc.CompanyID,
		&doc.PartnerID, &doc.Origin,
	)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
