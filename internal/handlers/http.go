package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/filter"
	"github.com/umalmyha/customer-registry/internal/format"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/internal/service"
	"github.com/umalmyha/customer-registry/internal/view"
)

const snapshotEvent = "snapshot"

type identifier struct {
	ID string `param:"id" validate:"required,uuid"`
}

type newCustomer struct {
	NationalID string    `json:"nationalId" validate:"required"`
	FirstNames string    `json:"firstNames" validate:"required"`
	LastNames  string    `json:"lastNames"`
	BirthDate  string    `json:"birthDate"`
	Sex        model.Sex `json:"sex" validate:"omitempty,oneof=Masculino Femenino"`
}

type updateCustomer struct {
	ID string `json:"-" param:"id" validate:"required,uuid"`
	newCustomer
}

type deleteCustomer struct {
	ID      string `param:"id" validate:"required,uuid"`
	Confirm bool   `query:"confirm"`
}

type formatted struct {
	Value string `json:"value"`
}

// CustomerHTTPHandler is http handler for customer endpoint
type CustomerHTTPHandler struct {
	customerSvc   service.CustomerService
	customersView *view.Customers
}

// NewCustomerHTTPHandler builds new CustomerHTTPHandler
func NewCustomerHTTPHandler(customerSvc service.CustomerService, customersView *view.Customers) *CustomerHTTPHandler {
	return &CustomerHTTPHandler{
		customerSvc:   customerSvc,
		customersView: customersView,
	}
}

// Get gets customer
// @Summary     Get single customer by id
// @Description Returns single customer with provided id
// @Tags        customers
// @Produce     json
// @Param       id     path     string true "Customer guid" Format(uuid)
// @Success     200    {object} model.Customer
// @Failure     400    {object} echo.HTTPError
// @Failure     404    {object} echo.HTTPError
// @Failure     500    {object} echo.HTTPError
// @Router      /api/customers/{id} [get]
func (h *CustomerHTTPHandler) Get(c echo.Context) error {
	id := c.Param("id")
	if err := c.Validate(&identifier{ID: id}); err != nil {
		return err
	}

	customer, err := h.customerSvc.FindByID(c.Request().Context(), id)
	if err != nil {
		return err
	}

	if customer == nil {
		return errors.NewCustomerNotFoundErr(id)
	}

	return c.JSON(http.StatusOK, customer)
}

// GetAll gets customers matching query
// @Summary     Get filtered customers
// @Description Returns latest customers list, newest first, narrowed by case-insensitive query
// @Tags        customers
// @Produce     json
// @Param       q      query    string false "Search query"
// @Success     200    {array}  model.Customer
// @Failure     500    {object} echo.HTTPError
// @Router      /api/customers [get]
func (h *CustomerHTTPHandler) GetAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.customersView.Filter(c.QueryParam("q")))
}

// Stream streams customers snapshots
// @Summary     Stream filtered customers
// @Description Sends snapshot event with filtered latest customers list initially and after every change
// @Tags        customers
// @Produce     text/event-stream
// @Param       q      query    string false "Search query"
// @Success     200    {array}  model.Customer
// @Failure     500    {object} echo.HTTPError
// @Router      /api/customers/stream [get]
func (h *CustomerHTTPHandler) Stream(c echo.Context) error {
	query := c.QueryParam("q")

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	for customers := range h.customersView.Subscribe(c.Request().Context()) {
		if err := writeEvent(res, snapshotEvent, filter.Apply(customers, query)); err != nil {
			return err
		}
	}
	return nil
}

// Post creates new customer
// @Summary     New Customer
// @Description Formats national id and birth date, then creates new customer
// @Tags        customers
// @Accept      json
// @Produce     json
// @Param       newCustomer body     newCustomer true "Data for new customer"
// @Success     201         {object} model.Customer
// @Failure     400         {object} echo.HTTPError
// @Failure     500         {object} echo.HTTPError
// @Router      /api/customers [post]
func (h *CustomerHTTPHandler) Post(c echo.Context) error {
	var nc newCustomer
	if err := c.Bind(&nc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(&nc); err != nil {
		return err
	}

	customer, err := h.customerSvc.Save(c.Request().Context(), nc.customer(""))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, customer)
}

// Put overwrites/creates customer
// @Summary     Overwrite/Create Customer
// @Description Overwrites customer keeping its registration time or creates new one with provided id
// @Tags        customers
// @Accept      json
// @Produce     json
// @Param       id             path     string         true "Customer guid" Format(uuid)
// @Param       updateCustomer body     newCustomer    true "Customer data"
// @Success     200            {object} model.Customer
// @Failure     400            {object} echo.HTTPError
// @Failure     500            {object} echo.HTTPError
// @Router      /api/customers/{id} [put]
func (h *CustomerHTTPHandler) Put(c echo.Context) error {
	var uc updateCustomer
	if err := c.Bind(&uc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(&uc); err != nil {
		return err
	}

	customer, err := h.customerSvc.Save(c.Request().Context(), uc.customer(uc.ID))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, customer)
}

// DeleteByID deletes customer
// @Summary     Delete customer by id
// @Description Deletes customer with provided id, requires explicit confirmation
// @Tags        customers
// @Param       id      path     string true  "Customer guid" Format(uuid)
// @Param       confirm query    bool   true  "Deletion confirmation"
// @Success     204     "Successful status code"
// @Failure     400     {object} echo.HTTPError
// @Failure     428     {object} echo.HTTPError
// @Failure     500     {object} echo.HTTPError
// @Router      /api/customers/{id} [delete]
func (h *CustomerHTTPHandler) DeleteByID(c echo.Context) error {
	var dc deleteCustomer
	if err := c.Bind(&dc); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := c.Validate(&dc); err != nil {
		return err
	}

	if !dc.Confirm {
		return echo.NewHTTPError(http.StatusPreconditionRequired, "deletion must be confirmed with confirm=true")
	}

	if err := h.customerSvc.DeleteByID(c.Request().Context(), dc.ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// FormatHTTPHandler is http handler for format endpoint
type FormatHTTPHandler struct{}

// NewFormatHTTPHandler builds new FormatHTTPHandler
func NewFormatHTTPHandler() *FormatHTTPHandler {
	return &FormatHTTPHandler{}
}

// NationalID formats national id
// @Summary     Format national id
// @Description Formats partially typed national id as ###-######-####L
// @Tags        format
// @Produce     json
// @Param       value  query    string false "Raw input"
// @Success     200    {object} formatted
// @Router      /api/format/national-id [get]
func (h *FormatHTTPHandler) NationalID(c echo.Context) error {
	return c.JSON(http.StatusOK, &formatted{Value: format.NationalID(c.QueryParam("value"))})
}

// BirthDate formats birth date
// @Summary     Format birth date
// @Description Formats partially typed birth date as YYYY-MM-DD
// @Tags        format
// @Produce     json
// @Param       value  query    string false "Raw input"
// @Success     200    {object} formatted
// @Router      /api/format/birth-date [get]
func (h *FormatHTTPHandler) BirthDate(c echo.Context) error {
	return c.JSON(http.StatusOK, &formatted{Value: format.BirthDate(c.QueryParam("value"))})
}

func (nc *newCustomer) customer(id string) *model.Customer {
	return &model.Customer{
		ID:         id,
		NationalID: nc.NationalID,
		FirstNames: nc.FirstNames,
		LastNames:  nc.LastNames,
		BirthDate:  nc.BirthDate,
		Sex:        nc.Sex,
	}
}

func writeEvent(res *echo.Response, event string, customers []*model.Customer) error {
	data, err := json.Marshal(customers)
	if err != nil {
		return fmt.Errorf("failed to encode %s event - %w", event, err)
	}

	if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("failed to write %s event - %w", event, err)
	}

	res.Flush()
	return nil
}
