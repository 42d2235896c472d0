// test/helpers/fakestore.go
package helpers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// FakeStore is an in-memory ports.Store for service-level tests. It keeps
// documents, lines, lots and products in maps and applies the same
// invariants the SQL adapter enforces (line order, lot binding exclusivity,
// sentinel errors). Predicate filtering is not interpreted; Search methods
// return everything, which suffices for tests that drive services directly.
type FakeStore struct {
	mu sync.Mutex

	nextID    int64
	Documents map[int64]*domain.Document
	Lines     map[int64]*domain.DocumentLine
	Lots      map[int64]*domain.Lot
	Products  map[int64]*domain.Product

	LocationsByID  map[int64]*domain.Location
	WarehousesByID map[int64]*domain.Warehouse
	PartnersByID   map[int64]*domain.Partner
	Quants         []domain.StockQuant
	ProductStock   map[int64]decimal.Decimal

	// Commits records every Commit call for assertion.
	Commits []CommitRecord
	// CommitErr, when set, is returned by the next Commit.
	CommitErr error
}

// CommitRecord is one observed Commit invocation.
type CommitRecord struct {
	DocumentID int64
	Options    ports.CommitOptions
}

// NewFakeStore returns an empty fake backing store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		nextID:         1000,
		Documents:      make(map[int64]*domain.Document),
		Lines:          make(map[int64]*domain.DocumentLine),
		Lots:           make(map[int64]*domain.Lot),
		Products:       make(map[int64]*domain.Product),
		LocationsByID:  make(map[int64]*domain.Location),
		WarehousesByID: make(map[int64]*domain.Warehouse),
		PartnersByID:   make(map[int64]*domain.Partner),
		ProductStock:   make(map[int64]decimal.Decimal),
	}
}

// Store bundles the fake into the ports.Store shape services expect.
func (f *FakeStore) Store() ports.Store {
	return ports.Store{
		Documents:  (*fakeDocuments)(f),
		Lines:      (*fakeLines)(f),
		Lots:       (*fakeLots)(f),
		Products:   (*fakeProducts)(f),
		Locations:  (*fakeLocations)(f),
		Warehouses: (*fakeWarehouses)(f),
		Partners:   (*fakePartners)(f),
		Stock:      (*fakeStock)(f),
	}
}

func (f *FakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// AddDocument registers a document and returns it.
func (f *FakeStore) AddDocument(doc domain.Document) *domain.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = f.id()
	}
	f.Documents[doc.ID] = &doc
	return &doc
}

// AddLine registers a document line and returns it.
func (f *FakeStore) AddLine(line domain.DocumentLine) *domain.DocumentLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	if line.ID == 0 {
		line.ID = f.id()
	}
	f.Lines[line.ID] = &line
	return &line
}

// AddLot registers a lot and returns it.
func (f *FakeStore) AddLot(lot domain.Lot) *domain.Lot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lot.ID == 0 {
		lot.ID = f.id()
	}
	f.Lots[lot.ID] = &lot
	return &lot
}

// AddProduct registers a product and returns it.
func (f *FakeStore) AddProduct(p domain.Product) *domain.Product {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == 0 {
		p.ID = f.id()
	}
	f.Products[p.ID] = &p
	return &p
}

// DocumentLines returns the document's lines in store-native order.
func (f *FakeStore) DocumentLines(documentID int64) []domain.DocumentLine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linesLocked(documentID)
}

func (f *FakeStore) linesLocked(documentID int64) []domain.DocumentLine {
	var out []domain.DocumentLine
	for _, l := range f.Lines {
		if l.DocumentID == documentID {
			line := *l
			if line.LotID != nil {
				if lot, ok := f.Lots[*line.LotID]; ok {
					line.ResolvedLot = lot.Name
				}
			}
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeDocuments FakeStore

func (f *fakeDocuments) FindByID(ctx context.Context, id int64) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.Documents[id]
	if !ok {
		return nil, fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocuments) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Document
	for _, d := range f.Documents {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if opts.Descending {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeDocuments) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.Documents)), nil
}

func (f *fakeDocuments) Create(ctx context.Context, doc ports.NewDocument, seeds []ports.ExpectedLineSeed) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fs := (*FakeStore)(f)
	created := &domain.Document{
		ID:        fs.id(),
		Category:  doc.Category,
		State:     domain.StateAssigned,
		CompanyID: doc.CompanyID,
		Origin:    doc.Origin,
	}
	if doc.PartnerID != 0 {
		pid := doc.PartnerID
		created.PartnerID = &pid
	}
	created.Name = fmt.Sprintf("%s/%05d", created.Category, created.ID)
	f.Documents[created.ID] = created

	for _, seed := range seeds {
		line := &domain.DocumentLine{
			ID:         fs.id(),
			DocumentID: created.ID,
			ProductID:  seed.ProductID,
			UoMID:      seed.UoMID,
			Expected:   seed.Expected,
			CompanyID:  doc.CompanyID,
		}
		f.Lines[line.ID] = line
	}
	return created, nil
}

func (f *fakeDocuments) Commit(ctx context.Context, id int64, opts ports.CommitOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommitErr != nil {
		err := f.CommitErr
		f.CommitErr = nil
		return err
	}
	doc, ok := f.Documents[id]
	if !ok {
		return fmt.Errorf("%w: document %d", domain.ErrNotFound, id)
	}
	if doc.State == domain.StateDone {
		return nil
	}
	if doc.State == domain.StateCancel {
		return fmt.Errorf("%w: document %d is cancelled", domain.ErrConflict, id)
	}
	f.Commits = append(f.Commits, CommitRecord{DocumentID: id, Options: opts})
	(*FakeStore)(f).materializeLotsLocked(id)
	doc.State = domain.StateDone
	return nil
}

// materializeLotsLocked mirrors the SQL adapter: deferred lot names become
// lot entities at commit and the lines rebind by reference.
func (f *FakeStore) materializeLotsLocked(documentID int64) {
	for _, line := range f.Lines {
		if line.DocumentID != documentID || line.LotID != nil || line.LotName == "" {
			continue
		}
		var lot *domain.Lot
		for _, existing := range f.Lots {
			if existing.Name == line.LotName &&
				existing.ProductID == line.ProductID &&
				existing.CompanyID == line.CompanyID {
				lot = existing
				break
			}
		}
		if lot == nil {
			lot = &domain.Lot{
				ID:        f.id(),
				Name:      line.LotName,
				ProductID: line.ProductID,
				CompanyID: line.CompanyID,
			}
			f.Lots[lot.ID] = lot
		}
		lotID := lot.ID
		line.LotID = &lotID
		line.LotName = ""
	}
}

type fakeLines FakeStore

func (f *fakeLines) FindByDocument(ctx context.Context, documentID int64) ([]domain.DocumentLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return (*FakeStore)(f).linesLocked(documentID), nil
}

func (f *fakeLines) Write(ctx context.Context, lineID int64, delta *domain.LineDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	line, ok := f.Lines[lineID]
	if !ok {
		return fmt.Errorf("%w: line %d", domain.ErrNotFound, lineID)
	}
	delta.Apply(line)
	return nil
}

func (f *fakeLines) Create(ctx context.Context, line *domain.NewLine) (*domain.DocumentLine, error) {
	if err := line.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Documents[line.DocumentID]; !ok {
		return nil, fmt.Errorf("%w: document %d", domain.ErrNotFound, line.DocumentID)
	}
	fs := (*FakeStore)(f)
	created := &domain.DocumentLine{
		ID:             fs.id(),
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
	if created.LotID != nil {
		if lot, ok := f.Lots[*created.LotID]; ok {
			created.ResolvedLot = lot.Name
		}
	}
	f.Lines[created.ID] = created
	copied := *created
	return &copied, nil
}

type fakeLots FakeStore

func (f *fakeLots) FindByName(ctx context.Context, name string, productID, companyID int64) (*domain.Lot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lot := range f.Lots {
		if lot.Name == name && lot.ProductID == productID && lot.CompanyID == companyID {
			copied := *lot
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeLots) Rename(ctx context.Context, lotID int64, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lot, ok := f.Lots[lotID]
	if !ok {
		return fmt.Errorf("%w: lot %d", domain.ErrNotFound, lotID)
	}
	lot.Name = newName
	return nil
}

type fakeProducts FakeStore

func (f *fakeProducts) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.Products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (f *fakeProducts) AssignBarcode(ctx context.Context, productID int64, barcode string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Products {
		if p.Barcode == barcode && p.ID != productID {
			return fmt.Errorf("%w: barcode %q already assigned", domain.ErrConflict, barcode)
		}
	}
	p, ok := f.Products[productID]
	if !ok {
		return fmt.Errorf("%w: product %d", domain.ErrNotFound, productID)
	}
	p.Barcode = barcode
	return nil
}

func (f *fakeProducts) SearchWithStock(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.ProductWithStock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ProductWithStock
	for _, p := range f.Products {
		out = append(out, domain.ProductWithStock{
			Product:       *p,
			StockQuantity: f.ProductStock[p.ID],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.Products)), nil
}

func (f *fakeProducts) StockQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for id, qty := range f.ProductStock {
		if compareDecimals(op, qty, value) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeLocations FakeStore

func (f *fakeLocations) FindByID(ctx context.Context, id int64) (*domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc, ok := f.LocationsByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: location %d", domain.ErrNotFound, id)
	}
	copied := *loc
	return &copied, nil
}

func (f *fakeLocations) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Location
	for _, l := range f.LocationsByID {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLocations) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.LocationsByID)), nil
}

type fakeWarehouses FakeStore

func (f *fakeWarehouses) FindActive(ctx context.Context, id int64) (*domain.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wh, ok := f.WarehousesByID[id]
	if !ok || !wh.Active {
		return nil, fmt.Errorf("%w: warehouse %d", domain.ErrNotFound, id)
	}
	copied := *wh
	return &copied, nil
}

func (f *fakeWarehouses) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.Warehouse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Warehouse
	for _, w := range f.WarehousesByID {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWarehouses) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.WarehousesByID)), nil
}

type fakePartners FakeStore

func (f *fakePartners) FindActive(ctx context.Context, id int64) (*domain.Partner, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.PartnersByID[id]
	if !ok || !p.Active {
		return nil, fmt.Errorf("%w: partner %d", domain.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

type fakeStock FakeStore

func (f *fakeStock) Search(ctx context.Context, pred query.Predicates, opts ports.SearchOptions) ([]domain.StockQuant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.StockQuant, len(f.Quants))
	copy(out, f.Quants)
	return out, nil
}

func (f *fakeStock) Count(ctx context.Context, pred query.Predicates) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.Quants)), nil
}

func (f *fakeStock) AvailableQuantityIDs(ctx context.Context, op query.Operator, value decimal.Decimal) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, q := range f.Quants {
		if compareDecimals(op, q.AvailableQuantity(), value) {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func compareDecimals(op query.Operator, a, b decimal.Decimal) bool {
	switch op {
	case query.OpEqual:
		return a.Equal(b)
	case query.OpNotEqual:
		return !a.Equal(b)
	case query.OpLess:
		return a.LessThan(b)
	case query.OpGreater:
		return a.GreaterThan(b)
	case query.OpLessEq:
		return a.LessThanOrEqual(b)
	case query.OpGreaterEq:
		return a.GreaterThanOrEqual(b)
	}
	return false
}

// StaticSettings is a ports.SettingsProvider returning a fixed snapshot.
type StaticSettings struct {
	Settings domain.Settings
	Err      error
}

func (s *StaticSettings) Snapshot(ctx context.Context) (domain.Settings, error) {
	return s.Settings, s.Err
}
