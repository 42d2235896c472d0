package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
)

// The seeder builds a small but complete demo warehouse: one company, a
// two-warehouse topology, a tracked and an untracked product catalog, lots,
// on-hand stock and a few open documents. It is idempotent; rerunning it
// truncates and rebuilds the demo data.

type seeder struct {
	db     *pgxpool.Pool
	logger *slog.Logger
	dryRun bool

	companyID    int64
	uomUnitID    int64
	uomBoxID     int64
	warehouseIDs map[string]int64
	locationIDs  map[string]int64
	productIDs   map[string]int64
	partnerIDs   map[string]int64
	lotIDs       map[string]int64
}

func newSeeder(db *pgxpool.Pool, logger *slog.Logger, dryRun bool) *seeder {
	return &seeder{
		db:           db,
		logger:       logger,
		dryRun:       dryRun,
		warehouseIDs: make(map[string]int64),
		locationIDs:  make(map[string]int64),
		productIDs:   make(map[string]int64),
		partnerIDs:   make(map[string]int64),
		lotIDs:       make(map[string]int64),
	}
}

func (s *seeder) run(ctx context.Context) error {
	if s.dryRun {
		s.logger.Info("dry run, no changes will be made")
		return nil
	}

	if err := s.reset(ctx); err != nil {
		return fmt.Errorf("resetting demo data: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"company", s.seedCompany},
		{"uoms", s.seedUoms},
		{"warehouses", s.seedWarehouses},
		{"partners", s.seedPartners},
		{"products", s.seedProducts},
		{"lots", s.seedLots},
		{"stock", s.seedStock},
		{"settings", s.seedSettings},
		{"documents", s.seedDocuments},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("seeding %s: %w", step.name, err)
		}
		s.logger.Info("seeded", slog.String("step", step.name))
	}

	return nil
}

func (s *seeder) reset(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		TRUNCATE stock_quants, document_lines, documents, lots, products,
			partners, uoms, app_settings RESTART IDENTITY CASCADE`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		TRUNCATE locations, warehouses, companies RESTART IDENTITY CASCADE`)
	return err
}

func (s *seeder) seedCompany(ctx context.Context) error {
	return s.db.QueryRow(ctx, `
		INSERT INTO companies (name) VALUES ('Demo Logistics') RETURNING id`,
	).Scan(&s.companyID)
}

func (s *seeder) seedUoms(ctx context.Context) error {
	if err := s.db.QueryRow(ctx,
		`INSERT INTO uoms (name) VALUES ('Units') RETURNING id`).Scan(&s.uomUnitID); err != nil {
		return err
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO uoms (name) VALUES ('Boxes') RETURNING id`).Scan(&s.uomBoxID)
}

// seedWarehouses builds the location tree for two warehouses. parent_path
// is materialized by hand since the demo tree is small and fixed.
func (s *seeder) seedWarehouses(ctx context.Context) error {
	type warehouseSpec struct {
		key   string
		name  string
		code  string
		zones []string
	}

	specs := []warehouseSpec{
		{key: "main", name: "Main Warehouse", code: "WH", zones: []string{"Stock", "Input", "Output"}},
		{key: "remote", name: "Remote Depot", code: "RD", zones: []string{"Stock"}},
	}

	// Virtual counterpart locations live outside any warehouse.
	virtual := []struct {
		key   string
		name  string
		usage string
	}{
		{"suppliers", "Vendors", "supplier"},
		{"customers", "Customers", "customer"},
		{"inventory_loss", "Inventory adjustment", "inventory"},
	}

	for _, v := range virtual {
		var id int64
		err := s.db.QueryRow(ctx, `
			INSERT INTO locations (name, complete_name, usage, company_id)
			VALUES ($1, $2, $3, NULL)
			RETURNING id`,
			v.name, "Partners/"+v.name, v.usage,
		).Scan(&id)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(ctx,
			`UPDATE locations SET parent_path = '/' || id || '/' WHERE id = $1`, id)
		if err != nil {
			return err
		}
		s.locationIDs[v.key] = id
	}

	for _, spec := range specs {
		var whID int64
		err := s.db.QueryRow(ctx, `
			INSERT INTO warehouses (name, code, company_id)
			VALUES ($1, $2, $3)
			RETURNING id`,
			spec.name, spec.code, s.companyID,
		).Scan(&whID)
		if err != nil {
			return err
		}
		s.warehouseIDs[spec.key] = whID

		// View root for the warehouse.
		var viewID int64
		err = s.db.QueryRow(ctx, `
			INSERT INTO locations (name, complete_name, usage, warehouse_id, company_id)
			VALUES ($1, $1, 'view', $2, $3)
			RETURNING id`,
			spec.code, whID, s.companyID,
		).Scan(&viewID)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(ctx,
			`UPDATE locations SET parent_path = '/' || id || '/' WHERE id = $1`, viewID)
		if err != nil {
			return err
		}
		s.locationIDs[spec.key+"/view"] = viewID

		var stockID int64
		for _, zone := range spec.zones {
			var zoneID int64
			err = s.db.QueryRow(ctx, `
				INSERT INTO locations (name, complete_name, barcode, parent_id, usage, warehouse_id, company_id)
				VALUES ($1, $2, $3, $4, 'internal', $5, $6)
				RETURNING id`,
				zone, spec.code+"/"+zone, spec.code+"-"+zone, viewID, whID, s.companyID,
			).Scan(&zoneID)
			if err != nil {
				return err
			}
			_, err = s.db.Exec(ctx, `
				UPDATE locations
				SET parent_path = (SELECT parent_path FROM locations WHERE id = $2) || id || '/'
				WHERE id = $1`, zoneID, viewID)
			if err != nil {
				return err
			}
			s.locationIDs[spec.key+"/"+zone] = zoneID
			if zone == "Stock" {
				stockID = zoneID
			}
		}

		_, err = s.db.Exec(ctx, `
			UPDATE warehouses SET view_location_id = $1, stock_location_id = $2 WHERE id = $3`,
			viewID, stockID, whID)
		if err != nil {
			return err
		}
	}

	// A shelf below Main/Stock exercises subtree scoping and the
	// lowest-level-only setting.
	stockID := s.locationIDs["main/Stock"]
	var shelfID int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO locations (name, complete_name, barcode, parent_id, usage, warehouse_id, company_id)
		VALUES ('Shelf 1', 'WH/Stock/Shelf 1', 'WH-STOCK-S1', $1, 'internal', $2, $3)
		RETURNING id`,
		stockID, s.warehouseIDs["main"], s.companyID,
	).Scan(&shelfID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		UPDATE locations
		SET parent_path = (SELECT parent_path FROM locations WHERE id = $2) || id || '/'
		WHERE id = $1`, shelfID, stockID)
	if err != nil {
		return err
	}
	s.locationIDs["main/Shelf 1"] = shelfID

	return nil
}

func (s *seeder) seedPartners(ctx context.Context) error {
	for _, name := range []string{"Acme Supplies", "Globex Retail"} {
		var id int64
		if err := s.db.QueryRow(ctx,
			`INSERT INTO partners (name) VALUES ($1) RETURNING id`, name).Scan(&id); err != nil {
			return err
		}
		s.partnerIDs[name] = id
	}
	return nil
}

func (s *seeder) seedProducts(ctx context.Context) error {
	products := []struct {
		name     string
		code     string
		barcode  string
		tracking string
	}{
		{"Cardboard Box S", "BOX-S", "2000000000017", "none"},
		{"Cardboard Box L", "BOX-L", "2000000000024", "none"},
		{"Scanner Battery", "BAT-01", "2000000000031", "lot"},
		{"Handheld Terminal", "HHT-10", "2000000000048", "serial"},
		{"Stretch Film Roll", "FILM-1", "", "none"},
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		var barcode any
		if p.barcode != "" {
			barcode = p.barcode
		}
		batch.Queue(`
			INSERT INTO products (name, code, barcode, uom_id, tracking)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			p.name, p.code, barcode, s.uomUnitID, p.tracking)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for _, p := range products {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			return fmt.Errorf("inserting product %s: %w", p.code, err)
		}
		s.productIDs[p.code] = id
	}
	return nil
}

func (s *seeder) seedLots(ctx context.Context) error {
	lots := []struct {
		name    string
		product string
	}{
		{"LOT-2408-A", "BAT-01"},
		{"LOT-2408-B", "BAT-01"},
		{"SN-000101", "HHT-10"},
		{"SN-000102", "HHT-10"},
	}

	for _, l := range lots {
		var id int64
		err := s.db.QueryRow(ctx, `
			INSERT INTO lots (name, product_id, company_id)
			VALUES ($1, $2, $3)
			RETURNING id`,
			l.name, s.productIDs[l.product], s.companyID,
		).Scan(&id)
		if err != nil {
			return err
		}
		s.lotIDs[l.name] = id
	}
	return nil
}

func (s *seeder) seedStock(ctx context.Context) error {
	quants := []struct {
		product  string
		location string
		lot      string
		qty      string
		reserved string
	}{
		{"BOX-S", "main/Stock", "", "120", "0"},
		{"BOX-L", "main/Stock", "", "48", "8"},
		{"BOX-S", "main/Shelf 1", "", "30", "0"},
		{"BAT-01", "main/Stock", "LOT-2408-A", "25", "0"},
		{"BAT-01", "remote/Stock", "LOT-2408-B", "10", "0"},
		{"HHT-10", "main/Stock", "SN-000101", "1", "0"},
		{"HHT-10", "main/Stock", "SN-000102", "1", "0"},
		{"FILM-1", "remote/Stock", "", "200", "0"},
	}

	batch := &pgx.Batch{}
	for _, q := range quants {
		var lotID any
		if q.lot != "" {
			lotID = s.lotIDs[q.lot]
		}
		qty, err := decimal.NewFromString(q.qty)
		if err != nil {
			return err
		}
		reserved, err := decimal.NewFromString(q.reserved)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO stock_quants (product_id, location_id, lot_id, uom_id, quantity, reserved_quantity)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.productIDs[q.product], s.locationIDs[q.location], lotID, s.uomUnitID, qty, reserved)
	}

	br := s.db.SendBatch(ctx, batch)
	defer br.Close()

	for range quants {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) seedSettings(ctx context.Context) error {
	settings := map[string]string{
		domain.SettingUseFakeSerials:       "true",
		domain.SettingAutoCreateBackorders: "true",
		domain.SettingDefaultScanLocations: "false",
		domain.SettingOnlyLowestLocations:  "false",
		domain.SettingShipExpectedActuals:  "false",
	}

	for key, value := range settings {
		_, err := s.db.Exec(ctx, `
			INSERT INTO app_settings (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
			key, value)
		if err != nil {
			return err
		}
	}
	return nil
}

// seedDocuments creates an open receiving and an open shipment so a device
// has something to pick up straight away.
func (s *seeder) seedDocuments(ctx context.Context) error {
	type lineSpec struct {
		product  string
		expected string
		lot      string
	}
	docs := []struct {
		category string
		source   string
		dest     string
		partner  string
		lines    []lineSpec
	}{
		{
			category: "IN",
			source:   "suppliers",
			dest:     "main/Stock",
			partner:  "Acme Supplies",
			lines: []lineSpec{
				{product: "BOX-S", expected: "50"},
				{product: "BAT-01", expected: "20"},
			},
		},
		{
			category: "OUT",
			source:   "main/Stock",
			dest:     "customers",
			partner:  "Globex Retail",
			lines: []lineSpec{
				{product: "BOX-L", expected: "8"},
			},
		},
	}

	for _, d := range docs {
		var docID int64
		err := s.db.QueryRow(ctx, `
			INSERT INTO documents (name, category, state, location_id, location_dest_id, company_id, partner_id, warehouse_id)
			VALUES ('', $1, 'assigned', $2, $3, $4, $5, $6)
			RETURNING id`,
			d.category, s.locationIDs[d.source], s.locationIDs[d.dest],
			s.companyID, s.partnerIDs[d.partner], s.warehouseIDs["main"],
		).Scan(&docID)
		if err != nil {
			return err
		}

		_, err = s.db.Exec(ctx,
			`UPDATE documents SET name = $1 WHERE id = $2`,
			fmt.Sprintf("%s/%05d", d.category, docID), docID)
		if err != nil {
			return err
		}

		for _, l := range d.lines {
			expected, err := decimal.NewFromString(l.expected)
			if err != nil {
				return err
			}
			_, err = s.db.Exec(ctx, `
				INSERT INTO document_lines (document_id, product_id, uom_id, label, expected, location_id, location_dest_id, company_id)
				VALUES ($1, $2, $3, (SELECT name FROM products WHERE id = $2), $4, $5, $6, $7)`,
				docID, s.productIDs[l.product], s.uomUnitID, expected,
				s.locationIDs[d.source], s.locationIDs[d.dest], s.companyID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	var (
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun   = flag.Bool("dry-run", false, "Preview without modifying the database")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)

	dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "warebridge"),
		getEnv("DB_PASSWORD", "warebridge_dev"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "warebridge"),
		getEnv("DB_SSL_MODE", "disable"),
	)

	ctx := context.Background()

	var db *pgxpool.Pool
	var err error
	if !*dryRun {
		db, err = pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()
	}

	s := newSeeder(db, logger, *dryRun)
	if err := s.run(ctx); err != nil {
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seed completed",
		slog.Int("warehouses", len(s.warehouseIDs)),
		slog.Int("locations", len(s.locationIDs)),
		slog.Int("products", len(s.productIDs)),
		slog.Int("lots", len(s.lotIDs)))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
