// Package constraint decides which ingredients may be added to or removed
// from an in-progress order. It is pure: every decision is a function of a
// catalog snapshot and the current selection, and nothing here touches the
// database, the cache or the clock.
package constraint

import (
	"strconv"

	"restaurant-service/internal/entity"
)

// Catalog is a point-in-time snapshot of ingredients (including stock) and
// the size configuration.
type Catalog struct {
	Ingredients map[int]entity.Ingredient
	Sizes       map[entity.Size]entity.SizeConfig
}

// Selection is the in-progress, unpersisted ingredient choice for an order
// being configured.
type Selection struct {
	Size        entity.Size
	Ingredients []int
}

func (s Selection) has(id int) bool {
	for _, sel := range s.Ingredients {
		if sel == id {
			return true
		}
	}
	return false
}

// Incompatible reports whether a and b may not coexist. The edge may be
// stored on either ingredient; the check is symmetric.
func (c Catalog) Incompatible(a, b int) bool {
	for _, id := range c.Ingredients[a].IncompatibleWith {
		if id == b {
			return true
		}
	}
	for _, id := range c.Ingredients[b].IncompatibleWith {
		if id == a {
			return true
		}
	}
	return false
}

// Closure returns candidate plus everything it transitively requires,
// excluding ingredients already selected. The walk keeps an explicit visited
// set so cyclic requirement data terminates instead of recursing forever;
// requirement edges pointing at unknown ingredients are skipped.
func (c Catalog) Closure(candidate int, sel Selection) []int {
	visited := make(map[int]bool, len(sel.Ingredients)+1)
	for _, id := range sel.Ingredients {
		visited[id] = true
	}

	var out []int
	stack := []int{candidate}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		ing, ok := c.Ingredients[id]
		if !ok {
			continue
		}
		visited[id] = true
		out = append(out, id)
		for _, req := range ing.Requires {
			if !visited[req] {
				stack = append(stack, req)
			}
		}
	}
	return out
}

// CanAdd decides whether candidate (plus its dependency closure) may join
// the selection. Denial precedence: stock, then size cap, then
// incompatibility. Adding an ingredient that is already selected is an
// allowed no-op.
func CanAdd(cat Catalog, sel Selection, candidate int) Decision {
	if _, ok := cat.Ingredients[candidate]; !ok {
		return denied(Denial{Code: CodeNotFound, Ingredient: strconv.Itoa(candidate)})
	}
	if sel.has(candidate) {
		return Decision{Allowed: true}
	}

	closure := cat.Closure(candidate, sel)

	for _, id := range closure {
		if ing := cat.Ingredients[id]; !ing.Stock.Available() {
			return denied(Denial{Code: CodeOutOfStock, Ingredient: ing.Name})
		}
	}

	cfg, ok := cat.Sizes[sel.Size]
	if !ok {
		return denied(Denial{Code: CodeNotFound, Ingredient: string(sel.Size)})
	}
	needed := len(sel.Ingredients) + len(closure)
	if needed > cfg.MaxIngredients {
		return denied(Denial{Code: CodeSizeLimitExceeded, Max: cfg.MaxIngredients, Needed: needed})
	}

	combined := make([]int, 0, needed)
	combined = append(combined, sel.Ingredients...)
	combined = append(combined, closure...)
	for _, id := range closure {
		for _, other := range combined {
			if other == id {
				continue
			}
			if cat.Incompatible(id, other) {
				return denied(Denial{
					Code:       CodeIncompatible,
					Ingredient: cat.Ingredients[id].Name,
					Other:      cat.Ingredients[other].Name,
				})
			}
		}
	}

	return Decision{Allowed: true, ToAdd: closure}
}

// CanRemove decides whether candidate may leave the selection. Removal is
// blocked while another selected ingredient requires the candidate, and it
// never cascades: dependencies the candidate pulled in stay selected.
func CanRemove(cat Catalog, sel Selection, candidate int) Decision {
	if _, ok := cat.Ingredients[candidate]; !ok {
		return denied(Denial{Code: CodeNotFound, Ingredient: strconv.Itoa(candidate)})
	}
	if !sel.has(candidate) {
		return Decision{Allowed: true}
	}
	for _, id := range sel.Ingredients {
		if id == candidate {
			continue
		}
		for _, req := range cat.Ingredients[id].Requires {
			if req == candidate {
				return denied(Denial{
					Code:       CodeRequiredByOthers,
					Ingredient: cat.Ingredients[candidate].Name,
					Other:      cat.Ingredients[id].Name,
				})
			}
		}
	}
	return Decision{Allowed: true, ToRemove: []int{candidate}}
}

// ChangeSize decides whether the selection still fits under the new size's
// ingredient cap.
func ChangeSize(cat Catalog, sel Selection, newSize entity.Size) Decision {
	cfg, ok := cat.Sizes[newSize]
	if !ok {
		return denied(Denial{Code: CodeNotFound, Ingredient: string(newSize)})
	}
	if len(sel.Ingredients) > cfg.MaxIngredients {
		return denied(Denial{Code: CodeSizeLimitExceeded, Max: cfg.MaxIngredients, Needed: len(sel.Ingredients)})
	}
	return Decision{Allowed: true}
}

// ComputeTotal sums the size base price and the selected ingredients' unit
// prices. No rounding happens here; totals are rounded to cents only when
// rendered.
func ComputeTotal(cat Catalog, sel Selection) float64 {
	total := cat.Sizes[sel.Size].Price
	for _, id := range sel.Ingredients {
		total += cat.Ingredients[id].Price
	}
	return total
}

// ValidateSelection re-checks a whole selection from scratch, as done at
// submission time against a fresh snapshot. Unlike CanAdd it does not stop
// at the first violation: every out-of-stock ingredient, missing dependency
// and incompatible pair is reported. A nil result means the selection is
// valid.
func ValidateSelection(cat Catalog, sel Selection) []Denial {
	var denials []Denial

	for _, id := range sel.Ingredients {
		ing, ok := cat.Ingredients[id]
		if !ok {
			denials = append(denials, Denial{Code: CodeNotFound, Ingredient: strconv.Itoa(id)})
			continue
		}
		if !ing.Stock.Available() {
			denials = append(denials, Denial{Code: CodeOutOfStock, Ingredient: ing.Name})
		}
	}

	cfg, ok := cat.Sizes[sel.Size]
	if !ok {
		denials = append(denials, Denial{Code: CodeNotFound, Ingredient: string(sel.Size)})
	} else if len(sel.Ingredients) > cfg.MaxIngredients {
		denials = append(denials, Denial{Code: CodeSizeLimitExceeded, Max: cfg.MaxIngredients, Needed: len(sel.Ingredients)})
	}

	for _, id := range sel.Ingredients {
		ing, ok := cat.Ingredients[id]
		if !ok {
			continue
		}
		for _, req := range ing.Requires {
			if _, known := cat.Ingredients[req]; !known {
				continue
			}
			if !sel.has(req) {
				denials = append(denials, Denial{
					Code:       CodeMissingDependency,
					Ingredient: ing.Name,
					Other:      cat.Ingredients[req].Name,
				})
			}
		}
	}

	// Each unordered pair is reported once.
	for i := 0; i < len(sel.Ingredients); i++ {
		for j := i + 1; j < len(sel.Ingredients); j++ {
			a, b := sel.Ingredients[i], sel.Ingredients[j]
			if cat.Incompatible(a, b) {
				denials = append(denials, Denial{
					Code:       CodeIncompatible,
					Ingredient: cat.Ingredients[a].Name,
					Other:      cat.Ingredients[b].Name,
				})
			}
		}
	}

	return denials
}
