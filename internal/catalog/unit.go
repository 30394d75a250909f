package catalog

import "sort"

type UnitKind string

const (
	KindProduct UnitKind = "product"
	KindVariant UnitKind = "variant"
)

// UnitRef names a sellable unit: a product's default stock or one variant.
type UnitRef struct {
	Kind UnitKind `json:"kind"`
	ID   string   `json:"id"`
}

func ProductUnit(id string) UnitRef { return UnitRef{Kind: KindProduct, ID: id} }
func VariantUnit(id string) UnitRef { return UnitRef{Kind: KindVariant, ID: id} }

func (u UnitRef) String() string { return string(u.Kind) + ":" + u.ID }

func (u UnitRef) Valid() bool {
	return u.ID != "" && (u.Kind == KindProduct || u.Kind == KindVariant)
}

// SortUnits orders refs by their string key. Every store acquires unit locks
// in this order so overlapping carts cannot deadlock.
func SortUnits(refs []UnitRef) {
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
}
