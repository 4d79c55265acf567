// Package detect finds charges that recur at an identical amount.
package detect

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subscout-dev/subscout/internal/model"
)

// AllowList holds uppercased merchant-name substrings that are never reported.
type AllowList struct {
	terms []string
}

// NewAllowList uppercases entries and drops blank ones. Inner and
// surrounding spaces are kept, so "APPLE " does not match "APPLEBEES".
func NewAllowList(entries ...string) AllowList {
	terms := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		terms = append(terms, strings.ToUpper(e))
	}
	return AllowList{terms: terms}
}

// Terms returns the normalized entries.
func (a AllowList) Terms() []string {
	return a.terms
}

// Len returns the number of entries.
func (a AllowList) Len() int {
	return len(a.terms)
}

// Matches reports whether the uppercased name contains any entry.
func (a AllowList) Matches(name string) bool {
	upper := strings.ToUpper(name)
	for _, t := range a.terms {
		if strings.Contains(upper, t) {
			return true
		}
	}
	return false
}

// Group is a set of charges under one normalized merchant name.
type Group struct {
	Amounts  []decimal.Decimal // input order
	LastDate time.Time
}

// Count returns the number of charges in the group.
func (g Group) Count() int {
	return len(g.Amounts)
}

// Amount returns the most recent amount seen, or zero for an empty group.
func (g Group) Amount() decimal.Decimal {
	if len(g.Amounts) == 0 {
		return decimal.Zero
	}
	return g.Amounts[len(g.Amounts)-1]
}

// Result maps normalized merchant names to their recurring group.
type Result map[string]Group

// Names returns the merchant names in lexical order.
func (r Result) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect groups transactions by uppercased name and returns the groups that
// occur more than once with a single distinct amount. Transactions whose name
// matches the allow list never enter a group.
func Detect(txns []model.Transaction, allow AllowList) Result {
	groups := make(map[string]*Group)
	for _, txn := range txns {
		name := strings.ToUpper(txn.Name)
		if allow.Matches(name) {
			continue
		}

		g, ok := groups[name]
		if !ok {
			g = &Group{LastDate: txn.Date}
			groups[name] = g
		}
		g.Amounts = append(g.Amounts, txn.Amount)
		if txn.Date.After(g.LastDate) {
			g.LastDate = txn.Date
		}
	}

	result := make(Result)
	for name, g := range groups {
		if g.Count() > 1 && singleAmount(g.Amounts) {
			result[name] = *g
		}
	}
	return result
}

func singleAmount(amounts []decimal.Decimal) bool {
	for _, a := range amounts[1:] {
		if !a.Equal(amounts[0]) {
			return false
		}
	}
	return true
}
