package model

// Package pairs a backend-described slot with the store product that
// fills it. Product is zero-valued when the store did not return a
// matching product.
type Package struct {
	ProductID string
	IsCurrent bool
	Product   Product
}

// Offering is a backend-curated bundle of purchasable products
// presented together. Offerings are fetch-scoped: rebuilt on every
// offerings request, never mutated in place.
type Offering struct {
	ID        string
	IsCurrent bool
	Packages  []Package
}

// CurrentPackage returns the package flagged current, if any.
func (o Offering) CurrentPackage() (Package, bool) {
	for _, p := range o.Packages {
		if p.IsCurrent {
			return p, true
		}
	}
	return Package{}, false
}
