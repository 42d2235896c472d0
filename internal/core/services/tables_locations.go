// internal/core/services/tables_locations.go
package services

import (
	"context"
	"strconv"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// LocationRow is the client-facing location table row. Warehouses appear
// alongside locations as non-selectable group nodes so handhelds can render
// a single storage tree.
type LocationRow struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Barcode       string `json:"barcode,omitempty"`
	IsGroup       bool   `json:"isGroup"`
	NotSelectable bool   `json:"notSelectable"`
	ParentID      string `json:"parentId,omitempty"`
}

// locationsTable serves the storage tree: warehouses first, then locations.
type locationsTable struct {
	store    ports.Store
	settings ports.SettingsProvider
	fields   query.FieldMap
}

func newLocationsTable(store ports.Store, settings ports.SettingsProvider) *locationsTable {
	return &locationsTable{
		store:    store,
		settings: settings,
		fields: query.NewFieldMap(
			query.FieldInfo{APIName: "id", NativeName: "id", Kind: query.KindString},
			query.FieldInfo{APIName: "name", NativeName: "name", Kind: query.KindString},
			query.FieldInfo{APIName: "barcode", NativeName: "barcode", Kind: query.KindString},
		),
	}
}

func (t *locationsTable) rows(ctx context.Context, req ports.TableQuery) ([]any, *int64, error) {
	pred := query.Predicates{}
	if req.Where != nil {
		translated, err := query.Translate(req.Where, t.fields)
		if err != nil {
			return nil, nil, err
		}
		pred = pred.Append(translated...)
	}

	doc, err := t.deviceDocument(ctx, req.Device)
	if err != nil {
		return nil, nil, err
	}
	if doc != nil && doc.CompanyID != 0 {
		pred = pred.Append(query.LogicOr,
			query.Cond("company_id", query.OpEqual, nil),
			query.Cond("company_id", query.OpEqual, doc.CompanyID))
	}

	locationPred := pred
	if path, err := t.documentScopePath(ctx, doc); err != nil {
		return nil, nil, err
	} else if path != "" {
		locationPred = locationPred.Append(query.Cond("parent_path", query.OpPrefixLike, path+"%"))
	}

	warehousePred := warehouseBranchPredicates(pred)
	locationPred = locationBranchPredicates(locationPred)

	if req.WithCount {
		warehouses, err := t.store.Warehouses.Count(ctx, warehousePred)
		if err != nil {
			return nil, nil, err
		}
		locations, err := t.store.Locations.Count(ctx, locationPred)
		if err != nil {
			return nil, nil, err
		}
		total := warehouses + locations
		return nil, &total, nil
	}

	settings, err := t.settings.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := ports.SearchOptions{Limit: req.Limit, Offset: req.Offset}
	warehouses, err := t.store.Warehouses.Search(ctx, warehousePred, opts)
	if err != nil {
		return nil, nil, err
	}
	locations, err := t.store.Locations.Search(ctx, locationPred, opts)
	if err != nil {
		return nil, nil, err
	}

	warehouseIDs := make(map[int64]struct{}, len(warehouses))
	rows := make([]any, 0, len(warehouses)+len(locations))
	for i := range warehouses {
		warehouseIDs[warehouses[i].ID] = struct{}{}
		rows = append(rows, warehouseRow(&warehouses[i]))
	}
	for i := range locations {
		rows = append(rows, locationRow(&locations[i], warehouseIDs, settings))
	}
	return rows, nil, nil
}

// deviceDocument resolves the document the handheld is currently working
// on. Absent or malformed document ids just mean no extra scoping.
func (t *locationsTable) deviceDocument(ctx context.Context, device ports.DeviceInfo) (*domain.Document, error) {
	if device.DocumentID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(device.DocumentID, 10, 64)
	if err != nil {
		return nil, nil
	}
	doc, err := t.store.Documents.FindByID(ctx, id)
	if isNotFound(err) {
		return nil, nil
	}
	return doc, err
}

// documentScopePath returns the parent path of the document's main
// location, restricting the tree to locations the current operation can
// legally touch. Empty when no document scopes the request.
func (t *locationsTable) documentScopePath(ctx context.Context, doc *domain.Document) (string, error) {
	if doc == nil {
		return "", nil
	}
	desc, ok := domain.DescribeCategory(doc.Category)
	if !ok {
		return "", nil
	}
	loc, err := t.store.Locations.FindByID(ctx, doc.MainLocationID(desc))
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return loc.ParentPath, nil
}

// warehouseBranchPredicates adapts the shared filter to the warehouse
// query. Warehouse ids on the wire carry the external prefix; a plain id
// value therefore cannot name a warehouse and empties the branch. Barcode
// and path filters do not apply to warehouses and hold trivially.
func warehouseBranchPredicates(pred query.Predicates) query.Predicates {
	out := query.Predicates{
		query.Cond("active", query.OpEqual, true),
		query.Cond("company_id.active", query.OpEqual, true),
	}
	for _, term := range pred {
		cond, ok := term.(query.Condition)
		if !ok {
			out = append(out, term)
			continue
		}
		switch cond.Field {
		case "id":
			raw, isString := cond.Value.(string)
			if !isString {
				out = append(out, cond)
				continue
			}
			if !domain.IsExternalWarehouseID(raw) {
				return query.Predicates{query.Never()}
			}
			id, err := domain.ParseExternalWarehouseID(raw)
			if err != nil {
				return query.Predicates{query.Never()}
			}
			out = append(out, query.Cond(cond.Field, cond.Op, id))
		case "barcode", "parent_path":
			out = append(out, query.Always())
		default:
			out = append(out, cond)
		}
	}
	return out
}

// locationBranchPredicates adapts the shared filter to the location query.
// Prefixed warehouse ids cannot name a location and empty the branch;
// barcode filters also match the complete name because unlabelled
// locations expose the name as their scan code.
func locationBranchPredicates(pred query.Predicates) query.Predicates {
	out := query.Predicates{
		query.LogicOr,
		query.Cond("company_id", query.OpEqual, nil),
		query.Cond("company_id.active", query.OpEqual, true),
		query.LogicOr,
		query.Cond("warehouse_id", query.OpEqual, nil),
		query.Cond("warehouse_id.active", query.OpEqual, true),
	}
	for _, term := range pred {
		cond, ok := term.(query.Condition)
		if !ok {
			out = append(out, term)
			continue
		}
		switch cond.Field {
		case "id":
			raw, isString := cond.Value.(string)
			if !isString {
				out = append(out, cond)
				continue
			}
			if domain.IsExternalWarehouseID(raw) {
				return query.Predicates{query.Never()}
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return query.Predicates{query.Never()}
			}
			out = append(out, query.Cond(cond.Field, cond.Op, id))
		case "barcode":
			out = append(out,
				query.LogicOr,
				cond,
				query.Cond("complete_name", query.OpEqual, cond.Value))
		default:
			out = append(out, cond)
		}
	}
	return out
}

func warehouseRow(w *domain.Warehouse) LocationRow {
	return LocationRow{
		ID:            domain.ExternalWarehouseID(w.ID),
		Name:          w.Name,
		IsGroup:       true,
		NotSelectable: true,
	}
}

func locationRow(loc *domain.Location, warehouseIDs map[int64]struct{}, settings domain.Settings) LocationRow {
	parentID := formatOptionalID(loc.ParentID)
	if loc.Usage == "view" && loc.WarehouseID != nil {
		if _, listed := warehouseIDs[*loc.WarehouseID]; listed {
			parentID = domain.ExternalWarehouseID(*loc.WarehouseID)
		}
	}

	barcode := loc.CompleteName
	if loc.Barcode != "" {
		barcode = loc.Barcode
	}

	notSelectable := !loc.Active ||
		loc.Usage == "view" ||
		(settings.AllowOnlyLowestLevelLocations && loc.HasChildren)

	return LocationRow{
		ID:            formatID(loc.ID),
		Name:          loc.CompleteName,
		Barcode:       barcode,
		IsGroup:       loc.HasChildren,
		NotSelectable: notSelectable,
		ParentID:      parentID,
	}
}
