package service

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	cacheMocks "github.com/umalmyha/customer-registry/internal/cache/mocks"
	"github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/metrics"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/repository"
	rpsMocks "github.com/umalmyha/customer-registry/internal/repository/mocks"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

type customerTestData struct {
	ctx      context.Context
	now      time.Time
	customer *model.Customer
}

type customerServiceTestSuite struct {
	suite.Suite
	customerSvc       CustomerService
	customerRpsMock   *rpsMocks.CustomerRepository
	customerCacheMock *cacheMocks.CustomerCacheRepository
	metrics           *metrics.Metrics
	testData          *customerTestData
}

func (s *customerServiceTestSuite) SetupSuite() {
	registeredAt := time.Date(2023, time.November, 2, 9, 15, 0, 0, time.UTC)
	s.testData = &customerTestData{
		ctx: context.Background(),
		now: time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC),
		customer: &model.Customer{
			ID:           "ecc770d9-4576-4f72-affa-8b1454246692",
			NationalID:   "365-130995-0002H",
			FirstNames:   "Juan Carlos",
			LastNames:    "Pérez López",
			BirthDate:    "1995-09-13",
			Sex:          model.SexMasculine,
			RegisteredAt: &registeredAt,
		},
	}
}

func (s *customerServiceTestSuite) SetupTest() {
	t := s.T()
	s.customerRpsMock = rpsMocks.NewCustomerRepository(t)
	s.customerCacheMock = cacheMocks.NewCustomerCacheRepository(t)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.customerSvc = NewCustomerService(s.customerRpsMock, s.customerCacheMock, transactor.NewNoopTransactor(), s.metrics)
	s.customerSvc.(*customerService).now = func() time.Time { return s.testData.now }
}

func (s *customerServiceTestSuite) TestFindByIDFromCache() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("FindByID", ctx, customer.ID).Return(customer, nil).Once()

	s.T().Log("customer must be found in cache")
	{
		c, err := s.customerSvc.FindByID(ctx, customer.ID)
		s.Assert().NoError(err, "no error must be raised")
		s.Assert().Equal(customer, c, "cached customer must be returned")
		s.customerRpsMock.AssertNotCalled(s.T(), "FindByID", ctx, customer.ID)
		s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.CacheHits))
	}
}

func (s *customerServiceTestSuite) TestFindByIDNotFound() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("FindByID", ctx, customer.ID).Return(nil, nil).Once()
	s.customerRpsMock.On("FindByID", ctx, customer.ID).Return(nil, nil).Once()

	s.T().Log("customer is missing in cache and in primary datasource")
	{
		c, err := s.customerSvc.FindByID(ctx, customer.ID)
		s.Assert().NoError(err, "no error must be raised")
		s.Assert().Nil(c, "no customer must be present but it was found")
		s.customerCacheMock.AssertNotCalled(s.T(), "Create", ctx, mock.AnythingOfType("*model.Customer"))
		s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.CacheMisses))
	}
}

func (s *customerServiceTestSuite) TestFindByIDCached() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("FindByID", ctx, customer.ID).Return(nil, nil).Once()
	s.customerRpsMock.On("FindByID", ctx, customer.ID).Return(customer, nil).Once()
	s.customerCacheMock.On("Create", ctx, customer).Return(nil).Once()

	s.T().Log("customer is not in cache, found in primary datasource and cached")
	{
		c, err := s.customerSvc.FindByID(ctx, customer.ID)
		s.Assert().NoError(err, "no error must be raised")
		s.Assert().NotNil(c, "customer must be found")
		s.customerCacheMock.AssertCalled(s.T(), "Create", ctx, mock.AnythingOfType("*model.Customer"))
	}
}

func (s *customerServiceTestSuite) TestFindByIDCacheFailed() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("FindByID", ctx, customer.ID).Return(nil, stderrors.New("cache err")).Once()

	s.T().Log("cache lookup failed")
	{
		_, err := s.customerSvc.FindByID(ctx, customer.ID)
		s.Assert().Error(err, "cache raised error - error must be raised up")
		s.customerRpsMock.AssertNotCalled(s.T(), "FindByID", ctx, customer.ID)
	}
}

func (s *customerServiceTestSuite) TestDeleteByIDCacheFailed() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("DeleteByID", ctx, customer.ID).Return(stderrors.New("cache err")).Once()

	s.T().Log("delete customer from cache failed")
	{
		err := s.customerSvc.DeleteByID(ctx, customer.ID)
		s.Assert().Error(err, "cache raised error - error must be raised up")
		s.customerRpsMock.AssertNotCalled(s.T(), "DeleteByID", ctx, customer.ID)
	}
}

func (s *customerServiceTestSuite) TestDeleteByIDSuccessfully() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerCacheMock.On("DeleteByID", ctx, customer.ID).Return(nil).Once()
	s.customerRpsMock.On("DeleteByID", ctx, customer.ID).Return(nil).Once()

	s.T().Log("deleted successfully")
	{
		err := s.customerSvc.DeleteByID(ctx, customer.ID)
		s.Assert().NoError(err, "no error must be raised")
		s.customerRpsMock.AssertCalled(s.T(), "DeleteByID", ctx, customer.ID)
		s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.CustomersDeleted))
	}
}

func (s *customerServiceTestSuite) TestSaveNewCustomer() {
	ctx := s.testData.ctx
	now := s.testData.now

	raw := &model.Customer{
		NationalID: "3651309950002h",
		FirstNames: "Juan Carlos",
		LastNames:  "Pérez López",
		BirthDate:  "19950913",
		Sex:        model.SexMasculine,
	}

	s.customerRpsMock.On("Create", ctx, mock.AnythingOfType("*model.Customer")).Return(nil).Once()

	s.T().Log("customer without id must be created with generated id and registration time")
	{
		c, err := s.customerSvc.Save(ctx, raw)
		s.Require().NoError(err, "no error must be raised")
		s.Assert().Len(c.ID, 36, "uuid must be assigned")
		s.Assert().Equal("365-130995-0002h", c.NationalID, "national id must be formatted")
		s.Assert().Equal("1995-09-13", c.BirthDate, "birth date must be formatted")
		s.Require().NotNil(c.RegisteredAt, "registration time must be assigned")
		s.Assert().Equal(now, *c.RegisteredAt)
		s.Assert().Empty(raw.ID, "input must not be modified")
		s.customerRpsMock.AssertNotCalled(s.T(), "FindByID", ctx, mock.Anything)
		s.customerRpsMock.AssertNotCalled(s.T(), "Update", ctx, mock.AnythingOfType("*model.Customer"))
		s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.CustomersSaved.WithLabelValues(string(model.ChangeInsert))))
	}
}

func (s *customerServiceTestSuite) TestSaveUpdateCustomer() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	upd := &model.Customer{
		ID:         customer.ID,
		NationalID: "365-130995-0003J",
		FirstNames: "Juan",
		LastNames:  "Pérez",
		BirthDate:  "1995-09-14",
		Sex:        model.SexMasculine,
	}

	s.customerRpsMock.On("FindByID", ctx, customer.ID).Return(customer, nil).Once()
	s.customerCacheMock.On("DeleteByID", ctx, customer.ID).Return(nil).Once()
	s.customerRpsMock.On("Update", ctx, mock.AnythingOfType("*model.Customer")).Return(nil).Once()

	s.T().Log("customer is present, so must be overwritten keeping registration time")
	{
		c, err := s.customerSvc.Save(ctx, upd)
		s.Require().NoError(err, "no error must be raised")
		s.Assert().Equal(customer.RegisteredAt, c.RegisteredAt, "registration time must be kept")
		s.Assert().Equal("Juan", c.FirstNames, "fields must be overwritten")
		s.customerRpsMock.AssertNotCalled(s.T(), "Create", ctx, mock.AnythingOfType("*model.Customer"))
		s.Assert().Equal(float64(1), testutil.ToFloat64(s.metrics.CustomersSaved.WithLabelValues(string(model.ChangeUpdate))))
	}
}

func (s *customerServiceTestSuite) TestSaveUnknownIDCreatesCustomer() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerRpsMock.On("FindByID", ctx, customer.ID).Return(nil, nil).Once()
	s.customerRpsMock.On("Create", ctx, mock.AnythingOfType("*model.Customer")).Return(nil).Once()

	s.T().Log("customer with unknown id must be created under that id")
	{
		c, err := s.customerSvc.Save(ctx, customer)
		s.Require().NoError(err, "no error must be raised")
		s.Assert().Equal(customer.ID, c.ID, "id must be kept")
		s.Assert().Equal(s.testData.now, *c.RegisteredAt, "registration time must be assigned on creation")
		s.customerRpsMock.AssertNotCalled(s.T(), "Update", ctx, mock.AnythingOfType("*model.Customer"))
	}
}

func (s *customerServiceTestSuite) TestSaveUpdateFailed() {
	ctx := s.testData.ctx
	customer := s.testData.customer

	s.customerRpsMock.On("FindByID", ctx, customer.ID).Return(customer, nil).Once()
	s.customerCacheMock.On("DeleteByID", ctx, customer.ID).Return(nil).Once()
	s.customerRpsMock.On("Update", ctx, mock.AnythingOfType("*model.Customer")).Return(stderrors.New("db err")).Once()

	s.T().Log("update failed")
	{
		c, err := s.customerSvc.Save(ctx, customer)
		s.Assert().Error(err, "store raised error - error must be raised up")
		s.Assert().Nil(c, "no customer must be returned")
	}
}

func (s *customerServiceTestSuite) TestSaveInvalidCustomer() {
	ctx := s.testData.ctx

	invalid := []struct {
		field    string
		customer *model.Customer
	}{
		{field: "nationalId", customer: &model.Customer{NationalID: "!!-- --", FirstNames: "Ana"}},
		{field: "firstNames", customer: &model.Customer{NationalID: "281-250388-0001A"}},
		{field: "sex", customer: &model.Customer{NationalID: "281-250388-0001A", FirstNames: "Ana", Sex: "Otro"}},
	}

	for _, tt := range invalid {
		s.T().Logf("customer with invalid %s must be rejected", tt.field)
		{
			_, err := s.customerSvc.Save(ctx, tt.customer)
			var ruleErr *errors.CustomerRuleErr
			s.Require().ErrorAs(err, &ruleErr, "rule error must be raised")
			s.Assert().Equal(tt.field, ruleErr.Field())
		}
	}
}

func (s *customerServiceTestSuite) TestFindAllSorted() {
	ctx := s.testData.ctx
	older := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

	customers := []*model.Customer{
		{ID: "legacy"},
		{ID: "older", RegisteredAt: &older},
		{ID: "newer", RegisteredAt: &newer},
	}

	s.customerRpsMock.On("FindAll", ctx).Return(customers, nil).Once()

	s.T().Log("customers must be sorted newest first")
	{
		res, err := s.customerSvc.FindAll(ctx)
		s.Require().NoError(err, "no error must be raised")
		s.Assert().Equal("newer", res[0].ID)
		s.Assert().Equal("older", res[1].ID)
		s.Assert().Equal("legacy", res[2].ID)
	}
}

func (s *customerServiceTestSuite) TestSubscribe() {
	ctx, cancel := context.WithCancel(s.testData.ctx)
	defer cancel()

	first := []*model.Customer{{ID: "a"}}
	second := []*model.Customer{{ID: "a"}, {ID: "b"}}

	s.customerRpsMock.On("FindAll", ctx).Return(first, nil).Once()
	s.customerRpsMock.On("FindAll", ctx).Return(nil, stderrors.New("db err")).Once()
	s.customerRpsMock.On("FindAll", ctx).Return(second, nil).Once()
	s.customerRpsMock.On("Watch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		fn := args.Get(1).(func(*model.CustomerChange) error)
		s.Assert().NoError(fn(&model.CustomerChange{Op: model.ChangeSync}))
		s.Assert().NoError(fn(&model.CustomerChange{ID: "b", Op: model.ChangeInsert}))
		s.Assert().NoError(fn(&model.CustomerChange{ID: "b", Op: model.ChangeUpdate}))
		cancel()
	}).Return(nil).Once()

	s.T().Log("initial list and every successfully rebuilt list must be delivered")
	{
		delivered := make([][]*model.Customer, 0)
		err := s.customerSvc.Subscribe(ctx, func(customers []*model.Customer) {
			delivered = append(delivered, customers)
		})
		s.Require().NoError(err, "no error must be raised")
		s.Require().Len(delivered, 2, "failed rebuild must be skipped")
		s.Assert().Equal(first, delivered[0])
		s.Assert().Equal(second, delivered[1])
	}
}

func (s *customerServiceTestSuite) TestSubscribeReadsAfterFeedIsOpen() {
	ctx, cancel := context.WithCancel(s.testData.ctx)
	defer cancel()

	stored := make([]*model.Customer, 0)
	s.customerRpsMock.On("FindAll", ctx).Return(func(context.Context) []*model.Customer {
		res := make([]*model.Customer, len(stored))
		copy(res, stored)
		return res
	}, nil)
	s.customerRpsMock.On("Watch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		// written before feed was open, never announced
		stored = append(stored, &model.Customer{ID: "unannounced"})

		fn := args.Get(1).(func(*model.CustomerChange) error)
		s.Assert().NoError(fn(&model.CustomerChange{Op: model.ChangeSync}))
		cancel()
	}).Return(nil).Once()

	s.T().Log("customers written before feed is open must be delivered")
	{
		var delivered []*model.Customer
		err := s.customerSvc.Subscribe(ctx, func(customers []*model.Customer) {
			delivered = customers
		})
		s.Require().NoError(err, "no error must be raised")
		s.Require().Len(delivered, 1, "delivered list must match store")
		s.Assert().Equal("unannounced", delivered[0].ID)
	}
}

func (s *customerServiceTestSuite) TestSubscribeInitialReadFailed() {
	ctx := s.testData.ctx

	s.customerRpsMock.On("FindAll", ctx).Return(nil, stderrors.New("db err")).Once()
	s.customerRpsMock.On("Watch", ctx, mock.Anything).Return(func(ctx context.Context, fn func(*model.CustomerChange) error) error {
		return fn(&model.CustomerChange{Op: model.ChangeSync})
	}).Once()

	s.T().Log("subscription fails if nothing can be delivered")
	{
		err := s.customerSvc.Subscribe(ctx, func([]*model.Customer) {
			s.Fail("nothing must be delivered")
		})
		s.Assert().Error(err, "error must be raised")
	}
}

func (s *customerServiceTestSuite) TestSubscribeWatchFailed() {
	ctx := s.testData.ctx

	s.customerRpsMock.On("Watch", ctx, mock.Anything).Return(stderrors.New("stream closed")).Once()

	s.T().Log("change feed failure is raised up")
	{
		err := s.customerSvc.Subscribe(ctx, func([]*model.Customer) {})
		s.Assert().Error(err, "error must be raised")
	}
}

func (s *customerServiceTestSuite) TestSubscribeFeedClosed() {
	ctx := s.testData.ctx

	s.customerRpsMock.On("Watch", ctx, mock.Anything).Return(nil).Once()

	s.T().Log("feed ending while subscriber is alive is an error")
	{
		err := s.customerSvc.Subscribe(ctx, func([]*model.Customer) {})
		s.Require().Error(err, "error must be raised")
		s.Assert().ErrorIs(err, repository.ErrFeedClosed)
	}
}

// start customer service test suite
func TestCustomerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(customerServiceTestSuite))
}
