package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refs(kind RefKind, pairs ...string) []Ref {
	out := make([]Ref, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Ref{ID: pairs[i], Kind: kind, Name: pairs[i+1]})
	}
	return out
}

func TestBuildVariantMatrix_AllPairsDistinctSKUs(t *testing.T) {
	drafts := BuildVariantMatrix(MatrixInput{
		ProductID:   "0f3c2a9e-1111-2222-3333-444455556666",
		Colors:      refs(RefColor, "c-a", "Navy Blue", "c-b", "Red"),
		Sizes:       refs(RefSize, "s-s", "S", "s-m", "M"),
		BasePrice:   decimal.RequireFromString("49.90"),
		BaseStock:   4,
		SKUTemplate: "tee basic",
	})
	require.Len(t, drafts, 4)

	want := []string{
		"TEE-BASIC-NAVY-BLUE-S-001",
		"TEE-BASIC-NAVY-BLUE-M-002",
		"TEE-BASIC-RED-S-003",
		"TEE-BASIC-RED-M-004",
	}
	pairs := map[string]bool{}
	for i, d := range drafts {
		assert.Equal(t, want[i], d.SKU)
		assert.True(t, d.Price.Equal(decimal.RequireFromString("49.90")))
		assert.Equal(t, 4, d.Stock)
		pairs[d.ColorID+"/"+d.SizeID] = true
	}
	assert.Len(t, pairs, 4)
}

func TestBuildVariantMatrix_EmptyDimension(t *testing.T) {
	assert.Empty(t, BuildVariantMatrix(MatrixInput{Colors: refs(RefColor, "c", "Red")}))
	assert.Empty(t, BuildVariantMatrix(MatrixInput{Sizes: refs(RefSize, "s", "S")}))
}

func TestBuildVariantMatrix_DefaultBaseAndCollidingNames(t *testing.T) {
	drafts := BuildVariantMatrix(MatrixInput{
		ProductID: "abcdef12-3456-7890-abcd-ef1234567890",
		Colors:    refs(RefColor, "c1", "Off White", "c2", "off_white", "c1", "dup"),
		Sizes:     refs(RefSize, "s1", "   "),
	})
	require.Len(t, drafts, 2)
	assert.Equal(t, "ABCDEF12-OFF-WHITE-X-001", drafts[0].SKU)
	assert.Equal(t, "ABCDEF12-OFF-WHITE-X-002", drafts[1].SKU)
}

func TestBuildVariantMatrix_Overrides(t *testing.T) {
	price := decimal.RequireFromString("12.5")
	stock := 0
	drafts := BuildVariantMatrix(MatrixInput{
		ProductID: "p",
		Colors:    refs(RefColor, "c1", "Red"),
		Sizes:     refs(RefSize, "s1", "S", "s2", "M"),
		BasePrice: decimal.RequireFromString("10"),
		BaseStock: 3,
		Overrides: map[string]DraftOverride{
			OverrideKey("c1", "s2"): {Price: &price, Stock: &stock},
		},
	})
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].Price.Equal(decimal.RequireFromString("10")))
	assert.Equal(t, 3, drafts[0].Stock)
	assert.True(t, drafts[1].Price.Equal(price))
	assert.Equal(t, 0, drafts[1].Stock)
}

func TestBuildVariantMatrix_Deterministic(t *testing.T) {
	in := MatrixInput{
		ProductID: "p",
		Colors:    refs(RefColor, "c1", "Red", "c2", "Blue"),
		Sizes:     refs(RefSize, "s1", "S"),
	}
	assert.Equal(t, BuildVariantMatrix(in), BuildVariantMatrix(in))
}

func TestDefaultSKU(t *testing.T) {
	assert.Equal(t, "0F3C2A9E", DefaultSKU("0f3c2a9e-1111-2222-3333-444455556666"))
	assert.Equal(t, "AB", DefaultSKU("ab"))
}

func TestProductSlug(t *testing.T) {
	cases := []struct {
		name, brand, id, want string
	}{
		{"Camiseta Básica", "Acme", "1234", "camiseta-basica-acme-1234"},
		{"  Tee -- Extra__Soft  ", "", "id9", "tee-extra-soft-id9"},
		{"Mug", "", "", "mug"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ProductSlug(c.name, c.brand, c.id), c.name)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "navy blue", NormalizeName("  Navy   BLUE "))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestProductSKU(t *testing.T) {
	assert.Equal(t, "TEE-1", ProductSKU("Tee 1", "p"))
	assert.Equal(t, "TEE-1", ProductSKU(" tee--1 ", "p"))
	assert.Equal(t, DefaultSKU("abcdef12-3456"), ProductSKU("  ", "abcdef12-3456"))
}
