package catalog

import "strings"

// RefKind identifies one of the named reference tables.
type RefKind string

const (
	RefColor    RefKind = "colors"
	RefSize     RefKind = "sizes"
	RefCategory RefKind = "categories"
	RefMaterial RefKind = "materials"
	RefBrand    RefKind = "brands"
)

func (k RefKind) Valid() bool {
	switch k {
	case RefColor, RefSize, RefCategory, RefMaterial, RefBrand:
		return true
	}
	return false
}

// Ref is a Color, Size, Category, Material or Brand.
type Ref struct {
	ID   string  `json:"id"`
	Kind RefKind `json:"kind"`
	Name string  `json:"name"`
}

// NormalizeName is the uniqueness key for reference names: trimmed,
// inner whitespace collapsed, lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
