package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockAvailability(t *testing.T) {
	assert.True(t, UnlimitedStock().Available())
	assert.True(t, LimitedStock(1).Available())
	assert.False(t, LimitedStock(0).Available())
}

func TestStockJSONUsesNullForUnlimited(t *testing.T) {
	data, err := json.Marshal(Ingredient{ID: 1, Name: "olives", Stock: UnlimitedStock()})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stock":null`)

	var ing Ingredient
	require.NoError(t, json.Unmarshal([]byte(`{"id":2,"name":"ham","stock":3}`), &ing))
	assert.False(t, ing.Stock.Unlimited())
	assert.Equal(t, 3, ing.Stock.Count())

	require.NoError(t, json.Unmarshal(data, &ing))
	assert.True(t, ing.Stock.Unlimited())
}
