package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	PackageKindCrushes      = "CRUSHES"
	PackageKindSubscription = "SUBSCRIPTION"
)

// Package is a purchasable item: a crush pack or a premium period.
type Package struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Crushes     int    `json:"crushes,omitempty"`
	PeriodDays  int    `json:"period_days,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (p Package) IsSubscription() bool { return p.Kind == PackageKindSubscription }

// Price renders the amount with two decimals, e.g. "4.99".
func (p Package) Price() string {
	return decimal.New(p.AmountCents, -2).StringFixed(2)
}

var Packages = map[string]Package{
	"crushes_5":         {ID: "crushes_5", Kind: PackageKindCrushes, Name: "5 Crushes", Crushes: 5, AmountCents: 499, Currency: "USD"},
	"crushes_15":        {ID: "crushes_15", Kind: PackageKindCrushes, Name: "15 Crushes", Crushes: 15, AmountCents: 1199, Currency: "USD"},
	"crushes_40":        {ID: "crushes_40", Kind: PackageKindCrushes, Name: "40 Crushes", Crushes: 40, AmountCents: 2499, Currency: "USD"},
	"premium_monthly":   {ID: "premium_monthly", Kind: PackageKindSubscription, Name: "Premium (1 month)", PeriodDays: 30, AmountCents: 1499, Currency: "USD"},
	"premium_quarterly": {ID: "premium_quarterly", Kind: PackageKindSubscription, Name: "Premium (3 months)", PeriodDays: 90, AmountCents: 3599, Currency: "USD"},
}

func LookupPackage(id string) (Package, error) {
	p, ok := Packages[id]
	if !ok {
		return Package{}, ErrInvalidPackage
	}
	return p, nil
}

// PackageList returns the catalogue sorted by kind then price.
func PackageList() []Package {
	out := make([]Package, 0, len(Packages))
	for _, p := range Packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].AmountCents < out[j].AmountCents
	})
	return out
}
