// Package filter narrows customer lists by a free text query.
package filter

import (
	"strings"

	"github.com/umalmyha/customer-registry/internal/model"
)

// Matches reports whether any searchable customer field contains query, ignoring case.
// Empty query matches every customer.
func Matches(c *model.Customer, query string) bool {
	if query == "" {
		return true
	}

	if c == nil {
		return false
	}

	q := strings.ToLower(query)
	for _, field := range searchable(c) {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Apply returns customers matching query in their original order
func Apply(customers []*model.Customer, query string) []*model.Customer {
	matched := make([]*model.Customer, 0, len(customers))
	for _, c := range customers {
		if Matches(c, query) {
			matched = append(matched, c)
		}
	}
	return matched
}

func searchable(c *model.Customer) [5]string {
	return [5]string{c.NationalID, c.FirstNames, c.LastNames, c.BirthDate, string(c.Sex)}
}
