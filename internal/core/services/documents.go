// internal/core/services/documents.go
package services

import (
	"context"
	"fmt"
	"strings"

	"warebridge/internal/core/domain"
	"warebridge/internal/core/ports"
	"warebridge/internal/core/query"
)

// Descriptions returns a page of document headers for a client document
// type, newest first. Unsupported type names yield an empty page.
func (s *DocumentService) Descriptions(ctx context.Context, typeName string, limit, offset int, withCount bool) (*ports.DocumentList, error) {
	desc, ok := domain.DescribeTypeName(typeName)
	if !ok {
		return &ports.DocumentList{Result: []ports.DocumentHeader{}}, nil
	}

	pred := documentSearchPredicates(desc)
	docs, err := s.store.Documents.Search(ctx, pred, ports.SearchOptions{
		Limit:      limit,
		Offset:     offset,
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	list := &ports.DocumentList{Result: make([]ports.DocumentHeader, 0, len(docs))}
	for i := range docs {
		list.Result = append(list.Result, headerFromDocument(&docs[i], desc))
	}

	if withCount {
		total, err := s.store.Documents.Count(ctx, pred)
		if err != nil {
			return nil, fmt.Errorf("failed to count documents: %w", err)
		}
		list.TotalCount = &total
	}
	return list, nil
}

// Document returns one document with its expected and actual line
// projections, or nil when nothing matches unambiguously.
func (s *DocumentService) Document(ctx context.Context, searchMode, searchCode, typeName string) (*ports.DocumentDetails, error) {
	desc, ok := domain.DescribeTypeName(typeName)
	if searchCode == "" || !ok {
		return nil, nil
	}

	var doc *domain.Document
	if strings.EqualFold(searchMode, "byCode") {
		id, numeric := parseID(searchCode)
		if !numeric {
			return nil, nil
		}
		found, err := s.store.Documents.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to find document %s: %w", searchCode, err)
		}
		doc = found
	} else {
		pred := documentSearchPredicates(desc).
			Append(query.Cond("name", query.OpLike, searchCode))
		docs, err := s.store.Documents.Search(ctx, pred, ports.SearchOptions{Limit: 2})
		if err != nil {
			return nil, fmt.Errorf("failed to search document by name: %w", err)
		}
		if len(docs) != 1 {
			return nil, nil
		}
		doc = &docs[0]
	}

	docDesc, ok := domain.DescribeCategory(doc.Category)
	if !ok {
		return nil, nil
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	lines, err := s.documentLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	details := &ports.DocumentDetails{DocumentHeader: headerFromDocument(doc, docDesc)}
	details.ExpectedLines, details.ActualLines, err = s.lineProjections(ctx, docDesc, settings, lines)
	if err != nil {
		return nil, err
	}
	return details, nil
}

// lineProjections maps store lines into the client's expected and actual
// line shapes. Zero-done actual lines are hidden when the category says
// so; Ship documents may override that via settings.
func (s *DocumentService) lineProjections(ctx context.Context, desc domain.TypeDescriptor, settings domain.Settings, lines []*domain.DocumentLine) (expected, actual []ports.APILine, err error) {
	ignoreZeroDone := desc.IgnoresZeroQuantityActuals
	if desc.Category == domain.CategoryShip {
		ignoreZeroDone = !settings.ShipExpectedActualLines
	}

	tracking := map[int64]domain.Tracking{}
	for _, line := range lines {
		if _, seen := tracking[line.ProductID]; seen {
			continue
		}
		product, err := s.store.Products.FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, nil, fmt.Errorf("product %d: %w", line.ProductID, err)
		}
		tracking[line.ProductID] = product.Tracking
	}

	for _, line := range lines {
		api := apiLineFromDocumentLine(line, tracking[line.ProductID])
		expected = append(expected, api)
		if !line.Done.IsPositive() && ignoreZeroDone {
			continue
		}
		actual = append(actual, api)
	}
	return expected, actual, nil
}

func apiLineFromDocumentLine(line *domain.DocumentLine, tracking domain.Tracking) ports.APILine {
	api := ports.APILine{
		UID:                   formatID(line.ID),
		InventoryItemID:       formatID(line.ProductID),
		ExpectedQuantity:      line.Expected,
		ActualQuantity:        line.Done,
		BindedDocumentLineUID: formatOptionalID(line.MoveID),
	}
	switch tracking {
	case domain.TrackingSerial:
		api.SerialNumber = line.LotValue()
	case domain.TrackingLot:
		api.SeriesName = line.LotValue()
	}
	return api
}

func headerFromDocument(doc *domain.Document, desc domain.TypeDescriptor) ports.DocumentHeader {
	return ports.DocumentHeader{
		ID:                    formatID(doc.ID),
		Name:                  doc.Name,
		DocumentTypeName:      desc.TypeName,
		SourceLocationID:      formatID(doc.LocationID),
		DestinationLocationID: formatID(doc.LocationDestID),
		CustomerVendorID:      formatOptionalID(doc.PartnerID),
	}
}
