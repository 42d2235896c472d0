// internal/core/domain/doctype.go
package domain

// LocationSide identifies which of a document's two locations is
// authoritative for line matching and storage-location filtering.
type LocationSide int

const (
	SideSource LocationSide = iota + 1
	SideDestination
)

// DocumentCategory is the warehouse operation category code.
type DocumentCategory string

// Category constants (sequence codes of the backing picking types)
const (
	CategoryReceiving  DocumentCategory = "IN"
	CategoryAllocation DocumentCategory = "INT"
	CategoryPick       DocumentCategory = "PICK"
	CategoryShip       DocumentCategory = "OUT"
)

// TypeDescriptor holds the structural properties of a document category.
// Descriptors are immutable and defined once at process start.
type TypeDescriptor struct {
	Category DocumentCategory
	// TypeName is the client-facing document type name.
	TypeName string
	// MainLocationSide determines which document location is authoritative.
	MainLocationSide LocationSide
	// CanSuppressLocationScanning allows the device to skip location scans
	// on two-step routes.
	CanSuppressLocationScanning bool
	// GeneratesFakeSerialIfMissing permits synthetic serial generation when
	// a serial-tracked product is reported without one.
	GeneratesFakeSerialIfMissing bool
	// IgnoresZeroQuantityActuals drops zero-done lines from the actual
	// line projection of the document.
	IgnoresZeroQuantityActuals bool
	// CanOverwriteFakeSerialOnRealScan allows replacing a previously
	// generated fake serial with a real scanned one.
	CanOverwriteFakeSerialOnRealScan bool
}

// documentTypes is the closed set of supported document categories.
var documentTypes = []TypeDescriptor{
	{
		Category:                     CategoryReceiving,
		TypeName:                     "Receiving",
		MainLocationSide:             SideDestination,
		CanSuppressLocationScanning:  true,
		GeneratesFakeSerialIfMissing: true,
		IgnoresZeroQuantityActuals:   true,
	},
	{
		Category:                         CategoryAllocation,
		TypeName:                         "Allocation",
		MainLocationSide:                 SideDestination,
		IgnoresZeroQuantityActuals:       true,
		CanOverwriteFakeSerialOnRealScan: true,
	},
	{
		Category:                   CategoryPick,
		TypeName:                   "Pick",
		MainLocationSide:           SideSource,
		IgnoresZeroQuantityActuals: true,
	},
	{
		Category:                    CategoryShip,
		TypeName:                    "Ship",
		MainLocationSide:            SideSource,
		CanSuppressLocationScanning: true,
	},
}

// DescribeCategory looks up the descriptor for a category code.
func DescribeCategory(category DocumentCategory) (TypeDescriptor, bool) {
	for _, dt := range documentTypes {
		if dt.Category == category {
			return dt, true
		}
	}
	return TypeDescriptor{}, false
}

// DescribeTypeName looks up the descriptor for a client-facing type name.
func DescribeTypeName(typeName string) (TypeDescriptor, bool) {
	for _, dt := range documentTypes {
		if dt.TypeName == typeName {
			return dt, true
		}
	}
	return TypeDescriptor{}, false
}

// DocumentTypes returns the closed set of supported descriptors.
func DocumentTypes() []TypeDescriptor {
	out := make([]TypeDescriptor, len(documentTypes))
	copy(out, documentTypes)
	return out
}

// SupportsTypeName reports whether the descriptor serves the given
// client-facing document type name.
func (d TypeDescriptor) SupportsTypeName(typeName string) bool {
	return d.TypeName == typeName
}
