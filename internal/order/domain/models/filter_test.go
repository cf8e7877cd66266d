package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListFilter_Apply(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orders := []Order{
		{ID: "a", OrderNumber: "ORD_20260301_001", Status: StatusPending, CreatedAt: base},
		{ID: "b", OrderNumber: "ORD_20260301_002", Status: StatusAccepted, CreatedAt: base.Add(time.Minute)},
		{ID: "c", OrderNumber: "ORD_20260301_003", Status: StatusPending, CreatedAt: base.Add(2 * time.Minute)},
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{name: "default newest first", filter: ListFilter{}, want: []string{"c", "b", "a"}},
		{name: "oldest first", filter: ListFilter{OldestFirst: true}, want: []string{"a", "b", "c"}},
		{name: "status filter", filter: ListFilter{Statuses: []Status{StatusPending}}, want: []string{"c", "a"}},
		{name: "second page", filter: ListFilter{Limit: 2, Page: 2}, want: []string{"a"}},
		{name: "page past end", filter: ListFilter{Limit: 2, Page: 5}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(orders)
			ids := make([]string, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestOrder_CloneIsDeep(t *testing.T) {
	table := 4
	o := Order{
		Items:         []OrderItem{{Name: "pizza", Customizations: []Customization{{Name: "size", Value: "L"}}}},
		StatusHistory: []StatusHistoryEntry{{Status: StatusPending}},
		DeliveryInfo:  DeliveryInfo{TableNumber: &table},
	}

	c := o.Clone()
	c.Items[0].Customizations[0].Value = "S"
	c.StatusHistory[0].Note = "changed"
	*c.TableNumber = 9

	assert.Equal(t, "L", o.Items[0].Customizations[0].Value)
	assert.Empty(t, o.StatusHistory[0].Note)
	assert.Equal(t, 4, *o.TableNumber)
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("preparing")
	assert.True(t, ok)
	assert.Equal(t, StatusPreparing, st)

	_, ok = ParseStatus("cooking")
	assert.False(t, ok)

	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusReady.IsTerminal())
}
