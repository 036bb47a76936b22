package pricing

import (
	"fmt"
	"strings"
)

// GenericCategoryName is the fallback category for products that match
// no keyword. It predefines nothing, so every calculation against it
// goes through the custom-logistics flow.
const GenericCategoryName = "Другое"

// Registry holds all known categories. It is built once at startup and
// read-only afterwards, so it is safe to share between goroutines.
type Registry struct {
	categories []Category
	byName     map[string]int
}

// NewRegistry builds a registry from the given categories, preserving
// their order. A generic fallback category is appended when absent.
func NewRegistry(categories []Category) *Registry {
	r := &Registry{byName: make(map[string]int, len(categories)+1)}
	for _, c := range categories {
		r.add(c)
	}
	if _, ok := r.byName[GenericCategoryName]; !ok {
		r.add(Category{
			Name:         GenericCategoryName,
			Requirements: Requirements{RequiresLogisticsRate: true, RequiresDutyRate: true, RequiresVATRate: true},
		})
	}
	return r
}

func (r *Registry) add(c Category) {
	if _, ok := r.byName[c.Name]; ok {
		return
	}
	r.byName[c.Name] = len(r.categories)
	r.categories = append(r.categories, c)
}

// All returns the categories in registration order.
func (r *Registry) All() []Category {
	out := make([]Category, len(r.categories))
	copy(out, r.categories)
	return out
}

// Get looks a category up by exact name.
func (r *Registry) Get(name string) (Category, error) {
	i, ok := r.byName[name]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
	}
	return r.categories[i], nil
}

// Generic returns the fallback category.
func (r *Registry) Generic() Category {
	c, _ := r.Get(GenericCategoryName)
	return c
}

// DetectCategory resolves a category for a product. A forced name wins
// and must exist. Otherwise keywords are matched case-insensitively as
// substrings of the product name; the first match in registration order
// wins, so ties between overlapping keyword sets are resolved by the
// order categories were registered in. Products with no match fall back
// to the generic category.
func (r *Registry) DetectCategory(productName, forcedCategory string) (Category, error) {
	if forcedCategory != "" {
		return r.Get(forcedCategory)
	}

	name := strings.ToLower(productName)
	for _, c := range r.categories {
		for _, kw := range c.Keywords {
			if kw != "" && strings.Contains(name, strings.ToLower(kw)) {
				return c, nil
			}
		}
	}
	return r.Generic(), nil
}
