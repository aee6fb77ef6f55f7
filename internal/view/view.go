// Package view keeps the latest customers snapshot and derives displayed lists from it.
package view

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/umalmyha/customer-registry/internal/filter"
	"github.com/umalmyha/customer-registry/internal/metrics"
	"github.com/umalmyha/customer-registry/internal/model"
)

// Customers holds the latest full customers snapshot sorted newest first.
// Snapshot is replaced as a whole and never modified after publication.
type Customers struct {
	mu          sync.RWMutex
	snapshot    []*model.Customer
	subscribers map[chan []*model.Customer]struct{}
	metrics     *metrics.Metrics
}

// NewCustomers builds empty Customers view
func NewCustomers(m *metrics.Metrics) *Customers {
	return &Customers{
		snapshot:    make([]*model.Customer, 0),
		subscribers: make(map[chan []*model.Customer]struct{}),
		metrics:     m,
	}
}

// Replace publishes customers as the new snapshot
func (v *Customers) Replace(customers []*model.Customer) {
	snapshot := make([]*model.Customer, len(customers))
	copy(snapshot, customers)
	Sort(snapshot)

	v.mu.Lock()
	v.snapshot = snapshot
	for ch := range v.subscribers {
		// reader which is behind gets the latest snapshot only
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
	v.mu.Unlock()

	if v.metrics != nil {
		v.metrics.ObserveSnapshot(len(snapshot))
	}
}

// Subscribe returns channel receiving the latest snapshot right away and after every Replace.
// Received slices are shared and must not be modified. Channel is closed once ctx is done.
func (v *Customers) Subscribe(ctx context.Context) <-chan []*model.Customer {
	ch := make(chan []*model.Customer, 1)

	v.mu.Lock()
	ch <- v.snapshot
	v.subscribers[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()

		v.mu.Lock()
		delete(v.subscribers, ch)
		close(ch)
		v.mu.Unlock()
	}()

	return ch
}

// Subscribers returns number of active subscriptions
func (v *Customers) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subscribers)
}

// Snapshot returns copy of the latest snapshot
func (v *Customers) Snapshot() []*model.Customer {
	v.mu.RLock()
	defer v.mu.RUnlock()

	res := make([]*model.Customer, len(v.snapshot))
	copy(res, v.snapshot)
	return res
}

// Filter returns customers of the latest snapshot matching query
func (v *Customers) Filter(query string) []*model.Customer {
	v.mu.RLock()
	snapshot := v.snapshot
	v.mu.RUnlock()

	return filter.Apply(snapshot, query)
}

// Len returns number of customers in the latest snapshot
func (v *Customers) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.snapshot)
}

// Sort orders customers by registration time, newest first.
// Customers without registration time are treated as registered at zero time.
func Sort(customers []*model.Customer) {
	sort.SliceStable(customers, func(i, j int) bool {
		return registeredAt(customers[i]).After(registeredAt(customers[j]))
	})
}

func registeredAt(c *model.Customer) time.Time {
	if c == nil || c.RegisteredAt == nil {
		return time.Time{}
	}
	return *c.RegisteredAt
}
