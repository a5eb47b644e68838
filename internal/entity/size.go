package entity

type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// SizeConfig is dish-independent: base price and the ingredient cap for a
// given size.
type SizeConfig struct {
	Price          float64 `json:"price"`
	MaxIngredients int     `json:"max_ingredients"`
}

// SizeConfigs returns the size configuration table.
func SizeConfigs() map[Size]SizeConfig {
	return map[Size]SizeConfig{
		SizeSmall:  {Price: 5, MaxIngredients: 3},
		SizeMedium: {Price: 7, MaxIngredients: 5},
		SizeLarge:  {Price: 9, MaxIngredients: 7},
	}
}

func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}
