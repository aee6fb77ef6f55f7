package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/umalmyha/customer-registry/internal/cache"
	"github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/format"
	"github.com/umalmyha/customer-registry/internal/metrics"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
	"github.com/umalmyha/customer-registry/internal/view"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

// CustomerService represents customer service behavior
type CustomerService interface {
	FindAll(context.Context) ([]*model.Customer, error)
	FindByID(context.Context, string) (*model.Customer, error)
	Save(context.Context, *model.Customer) (*model.Customer, error)
	DeleteByID(context.Context, string) error
	Subscribe(context.Context, func([]*model.Customer)) error
}

type customerService struct {
	customerRps      repository.CustomerRepository
	customerCacheRps cache.CustomerCacheRepository
	trx              transactor.Transactor
	metrics          *metrics.Metrics
	now              func() time.Time
}

// NewCustomerService builds new customer service
func NewCustomerService(
	customerRps repository.CustomerRepository,
	customerCacheRps cache.CustomerCacheRepository,
	trx transactor.Transactor,
	m *metrics.Metrics,
) CustomerService {
	return &customerService{
		customerRps:      customerRps,
		customerCacheRps: customerCacheRps,
		trx:              trx,
		metrics:          m,
		now:              time.Now,
	}
}

func (s *customerService) FindAll(ctx context.Context) ([]*model.Customer, error) {
	customers, err := s.customerRps.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read customers - %w", err)
	}

	view.Sort(customers)
	return customers, nil
}

func (s *customerService) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.customerCacheRps.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer %s from cache - %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.ObserveCache(c != nil)
	}

	if c != nil {
		return c, nil
	}

	c, err = s.customerRps.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer %s - %w", id, err)
	}

	if c == nil {
		return nil, nil
	}

	if err := s.customerCacheRps.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to cache customer %s - %w", id, err)
	}
	return c, nil
}

// Save creates customer without id, otherwise fully overwrites customer with the same id.
// Registration time is assigned once and kept on every overwrite.
func (s *customerService) Save(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	customer := &model.Customer{
		ID:         c.ID,
		NationalID: format.NationalID(c.NationalID),
		FirstNames: c.FirstNames,
		LastNames:  c.LastNames,
		BirthDate:  format.BirthDate(c.BirthDate),
		Sex:        c.Sex,
	}

	if err := s.validate(customer); err != nil {
		return nil, err
	}

	if customer.ID == "" {
		customer.ID = uuid.NewString()
		if err := s.create(ctx, customer); err != nil {
			return nil, err
		}
		s.observeSaved(model.ChangeInsert)
		return customer, nil
	}

	var op model.ChangeOp
	err := s.trx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.customerRps.FindByID(ctx, customer.ID)
		if err != nil {
			return fmt.Errorf("failed to read customer %s - %w", customer.ID, err)
		}

		if existing == nil {
			op = model.ChangeInsert
			return s.create(ctx, customer)
		}

		op = model.ChangeUpdate
		customer.RegisteredAt = existing.RegisteredAt

		if err := s.customerCacheRps.DeleteByID(ctx, customer.ID); err != nil {
			return fmt.Errorf("failed to evict customer %s from cache - %w", customer.ID, err)
		}

		if err := s.customerRps.Update(ctx, customer); err != nil {
			return fmt.Errorf("failed to update customer %s - %w", customer.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.observeSaved(op)
	return customer, nil
}

func (s *customerService) DeleteByID(ctx context.Context, id string) error {
	if err := s.customerCacheRps.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to evict customer %s from cache - %w", id, err)
	}

	if err := s.customerRps.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer %s - %w", id, err)
	}

	if s.metrics != nil {
		s.metrics.IncrementDeleted()
	}
	return nil
}

// Subscribe delivers full sorted customers list once change feed is open and again after every change.
// Failed rebuilds are skipped, so previously delivered list stays the latest valid one.
// Returns nil once ctx is cancelled, feed ending on its own is an error.
func (s *customerService) Subscribe(ctx context.Context, fn func([]*model.Customer)) error {
	err := s.customerRps.Watch(ctx, func(change *model.CustomerChange) error {
		customers, err := s.FindAll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			if change.Op == model.ChangeSync {
				return err
			}

			logrus.Errorf("failed to rebuild customers list after %s of %s - %v", change.Op, change.ID, err)
			return nil
		}
		fn(customers)
		return nil
	})
	if err != nil {
		return fmt.Errorf("customers subscription failed - %w", err)
	}

	if ctx.Err() == nil {
		return fmt.Errorf("customers subscription failed - %w", repository.ErrFeedClosed)
	}
	return nil
}

func (s *customerService) create(ctx context.Context, c *model.Customer) error {
	registeredAt := s.now().UTC()
	c.RegisteredAt = &registeredAt

	if err := s.customerRps.Create(ctx, c); err != nil {
		return fmt.Errorf("failed to create customer %s - %w", c.ID, err)
	}
	return nil
}

func (s *customerService) observeSaved(op model.ChangeOp) {
	if s.metrics != nil {
		s.metrics.IncrementSaved(op)
	}
}

func (s *customerService) validate(c *model.Customer) error {
	if c.NationalID == "" {
		return errors.NewCustomerRuleErr("nationalId", "national id must contain digits or letters")
	}

	if c.FirstNames == "" {
		return errors.NewCustomerRuleErr("firstNames", "first names are required")
	}

	if !c.Sex.Valid() {
		return errors.NewCustomerRuleErr("sex", fmt.Sprintf("sex must be %s or %s", model.SexMasculine, model.SexFeminine))
	}
	return nil
}
