package models

import "sort"

const DefaultListLimit = 50

// ListFilter narrows OrderStore.List. The zero value returns the first page, newest first.
type ListFilter struct {
	Statuses    []Status
	Limit       int
	Page        int
	OldestFirst bool
}

// Normalize fills limit and page defaults.
func (f ListFilter) Normalize() ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	return f
}

// Offset is the number of orders skipped before the current page.
func (f ListFilter) Offset() int {
	f = f.Normalize()
	return (f.Page - 1) * f.Limit
}

func (f ListFilter) matches(o Order) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// Apply filters, sorts and paginates orders into a new slice of clones.
func (f ListFilter) Apply(orders []Order) []Order {
	f = f.Normalize()

	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.matches(o) {
			out = append(out, o.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if f.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if f.OldestFirst {
			return a.OrderNumber < b.OrderNumber
		}
		return a.OrderNumber > b.OrderNumber
	})

	offset := f.Offset()
	if offset >= len(out) {
		return []Order{}
	}
	end := offset + f.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end]
}
