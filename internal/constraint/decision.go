package constraint

import "fmt"

type DenialCode string

const (
	CodeOutOfStock        DenialCode = "out_of_stock"
	CodeSizeLimitExceeded DenialCode = "size_limit_exceeded"
	CodeIncompatible      DenialCode = "incompatible"
	CodeRequiredByOthers  DenialCode = "required_by_others"
	CodeMissingDependency DenialCode = "missing_dependency"
	CodeNotFound          DenialCode = "not_found"
	CodeForbidden         DenialCode = "forbidden"
	CodeAlreadyCancelled  DenialCode = "already_cancelled"
)

// Denial is a business-rule violation. Denials are ordinary values, not Go
// errors: the caller can always tell a rejected request apart from an
// infrastructure failure.
type Denial struct {
	Code       DenialCode `json:"code"`
	Ingredient string     `json:"ingredient,omitempty"`
	Other      string     `json:"other,omitempty"`
	Max        int        `json:"max,omitempty"`
	Needed     int        `json:"needed,omitempty"`
}

func (d Denial) Message() string {
	switch d.Code {
	case CodeOutOfStock:
		return fmt.Sprintf("ingredient %q is out of stock", d.Ingredient)
	case CodeSizeLimitExceeded:
		return fmt.Sprintf("size allows at most %d ingredients, selection would have %d", d.Max, d.Needed)
	case CodeIncompatible:
		return fmt.Sprintf("ingredient %q is incompatible with %q", d.Ingredient, d.Other)
	case CodeRequiredByOthers:
		return fmt.Sprintf("ingredient %q is required by %q", d.Ingredient, d.Other)
	case CodeMissingDependency:
		return fmt.Sprintf("ingredient %q requires %q", d.Ingredient, d.Other)
	case CodeNotFound:
		return fmt.Sprintf("%q not found", d.Ingredient)
	case CodeForbidden:
		return "operation not allowed"
	case CodeAlreadyCancelled:
		return "order is already cancelled"
	}
	return string(d.Code)
}

// Decision is the outcome of a configuration check. An allowed add carries
// the dependency closure in ToAdd; an allowed remove carries the (single)
// ingredient in ToRemove.
type Decision struct {
	Allowed  bool     `json:"allowed"`
	ToAdd    []int    `json:"to_add,omitempty"`
	ToRemove []int    `json:"to_remove,omitempty"`
	Denials  []Denial `json:"denials,omitempty"`
}

func denied(denials ...Denial) Decision {
	return Decision{Denials: denials}
}
