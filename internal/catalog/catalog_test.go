package catalog_test

import (
	"testing"

	"farmverse/internal/catalog"
	"farmverse/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	products, err := catalog.Demo()
	require.NoError(t, err)
	require.Len(t, products, 6)

	var supplies int
	for _, p := range products {
		assert.Empty(t, p.ID)
		if p.Category == models.CategorySupply {
			supplies++
		}
	}
	assert.Equal(t, 3, supplies)
}

func TestStarter_IsLocalOnly(t *testing.T) {
	products := catalog.MustStarter()
	require.Len(t, products, 8)
	for _, p := range products {
		assert.True(t, p.Ref().IsLocal(), p.ID)
	}
	assert.Equal(t, "Organic Tomatoes", products[0].Name)
}

func TestParse_RejectsIncompleteEntries(t *testing.T) {
	_, err := catalog.Parse([]byte("products:\n  - name: Free Lunch\n    price: 0\n"))
	assert.Error(t, err)

	_, err = catalog.Parse([]byte("products: [unclosed"))
	assert.Error(t, err)
}
