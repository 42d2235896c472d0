// internal/adapters/db/locations.go
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

// locationRepository implements ports.LocationRepository on Postgres.
type locationRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewLocationRepository(db *Database, logger *slog.Logger) ports.LocationRepository {
	return &locationRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "locations")),
	}
}

var locationColumns = columnMap{
	"id":                  "l.id",
	"name":                "l.name",
	"complete_name":       "l.complete_name",
	"barcode":             "l.barcode",
	"parent_path":         "l.parent_path",
	"company_id":          "l.company_id",
	"company_id.active":   "c.active",
	"warehouse_id":        "l.warehouse_id",
	"warehouse_id.active": "w.active",
}

const locationSelect = `
	SELECT l.id, l.name, l.complete_name, COALESCE(l.barcode, ''),
	       l.parent_id, l.parent_path, l.usage, l.warehouse_id,
	       l.company_id, l.active,
	       EXISTS(SELECT 1 FROM locations ch WHERE ch.parent_id = l.id)
	FROM locations l
	LEFT JOIN companies c ON c.id = l.company_id
	LEFT JOIN warehouses w ON w.id = l.warehouse_id`

func (r *locationRepository) FindByID(ctx context.Context, id int64) (*domain.Location, error) {
	row := r.db.QueryRow(ctx, locationSelect+" WHERE l.id = $1", id)

	loc, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: location %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load location %d: %w", id, err)
	}
	return loc, nil
}

func (r *locationRepository) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Location, error) {
	where, err := renderPredicates(pred, locationColumns)
	if err != nil {
		return nil, err
	}

	qb := squirrel.Select(
		"l.id", "l.name", "l.complete_name", "COALESCE(l.barcode, '')",
		"l.parent_id", "l.parent_path", "l.usage", "l.warehouse_id",
		"l.company_id", "l.active",
		"EXISTS(SELECT 1 FROM locations ch WHERE ch.parent_id = l.id)",
	).From("locations l").
		LeftJoin("companies c ON c.id = l.company_id").
		LeftJoin("warehouses w ON w.id = l.warehouse_id").
		Where(where).
		OrderBy("l.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		qb = qb.Offset(uint64(opts.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build location query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []domain.Location
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, *loc)
	}
	return locations, rows.Err()
}

func (r *locationRepository) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	where, err := renderPredicates(pred, locationColumns)
	if err != nil {
		return 0, err
	}

	sql, args, err := squirrel.Select("COUNT(*)").
		From("locations l").
		LeftJoin("companies c ON c.id = l.company_id").
		LeftJoin("warehouses w ON w.id = l.warehouse_id").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build location count: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count locations: %w", err)
	}
	return count, nil
}

func scanLocation(row pgx.Row) (*domain.Location, error) {
	loc := &domain.Location{}
	err := row.Scan(
		&loc.ID, &loc.Name, &loc.CompleteName, &loc.Barcode,
		&loc.ParentID, &loc.ParentPath, &loc.Usage, &loc.WarehouseID,
		&loc.CompanyID, &loc.Active, &loc.HasChildren,
	)
	if err != nil {
		return nil, err
	}
	return loc, nil
}

// warehouseRepository implements ports.WarehouseRepository on Postgres.
type warehouseRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewWarehouseRepository(db *Database, logger *slog.Logger) ports.WarehouseRepository {
	return &warehouseRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "warehouses")),
	}
}

var warehouseColumns = columnMap{
	"id":                "w.id",
	"name":              "w.name",
	"active":            "w.active",
	"company_id":        "w.company_id",
	"company_id.active": "c.active",
}

func (r *warehouseRepository) FindActive(ctx context.Context, id int64) (*domain.Warehouse, error) {
	w := &domain.Warehouse{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, code, company_id, reception_steps, delivery_steps, active
		FROM warehouses WHERE id = $1 AND active`,
		id,
	).Scan(&w.ID, &w.Name, &w.Code, &w.CompanyID,
		&w.ReceptionSteps, &w.DeliverySteps, &w.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: warehouse %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load warehouse %d: %w", id, err)
	}
	return w, nil
}

func (r *warehouseRepository) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Warehouse, error) {
	where, err := renderPredicates(pred, warehouseColumns)
	if err != nil {
		return nil, err
	}

	qb := squirrel.Select(
		"w.id", "w.name", "w.code", "w.company_id",
		"w.reception_steps", "w.delivery_steps", "w.active",
	).From("warehouses w").
		LeftJoin("companies c ON c.id = w.company_id").
		Where(where).
		OrderBy("w.id ASC").
		PlaceholderFormat(squirrel.Dollar)

	if opts.Limit > 0 {
		qb = qb.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		qb = qb.Offset(uint64(opts.Offset))
	}

	sql, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build warehouse query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []domain.Warehouse
	for rows.Next() {
		var w domain.Warehouse
		err := rows.Scan(&w.ID, &w.Name, &w.Code, &w.CompanyID,
			&w.ReceptionSteps, &w.DeliverySteps, &w.Active)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (r *warehouseRepository) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	where, err := renderPredicates(pred, warehouseColumns)
	if err != nil {
		return 0, err
	}

	sql, args, err := squirrel.Select("COUNT(*)").
		From("warehouses w").
		LeftJoin("companies c ON c.id = w.company_id").
		Where(where).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build warehouse count: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count warehouses: %w", err)
	}
	return count, nil
}

// partnerRepository implements ports.PartnerRepository on Postgres.
type partnerRepository struct {
	db     *Database
	logger *slog.Logger
}

func NewPartnerRepository(db *Database, logger *slog.Logger) ports.PartnerRepository {
	return &partnerRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "partners")),
	}
}

func (r *partnerRepository) FindActive(ctx context.Context, id int64) (*domain.Partner, error) {
	p := &domain.Partner{}
	err := r.db.QueryRow(ctx,
		`SELECT id, name, active FROM partners WHERE id = $1 AND active`,
		id,
	).Scan(&p.ID, &p.Name, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: partner %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load partner %d: %w", id, err)
	}
	return p, nil
}
