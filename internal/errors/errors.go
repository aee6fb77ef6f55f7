// Package errors contains errors raised by customer registry on behalf of its clients.
package errors

import (
	"encoding/json"
	"fmt"
)

type ruleViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CustomerRuleErr is raised when customer breaks registry rule after formatting,
// e.g. national id without any digit or letter
type CustomerRuleErr struct {
	field   string
	message string
}

// NewCustomerRuleErr builds CustomerRuleErr for customer field
func NewCustomerRuleErr(field string, msg string) error {
	return &CustomerRuleErr{field: field, message: msg}
}

func (e *CustomerRuleErr) Error() string {
	return e.message
}

// Field returns json name of the violating customer field
func (e *CustomerRuleErr) Field() string {
	return e.field
}

// MarshalJSON renders error the same way as payload violations
func (e *CustomerRuleErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Errors []ruleViolation `json:"errors"`
	}{
		Errors: []ruleViolation{{Field: e.field, Message: e.message}},
	})
}

// CustomerNotFoundErr is raised when customer with requested id isn't registered
type CustomerNotFoundErr struct {
	id string
}

// NewCustomerNotFoundErr builds CustomerNotFoundErr
func NewCustomerNotFoundErr(id string) *CustomerNotFoundErr {
	return &CustomerNotFoundErr{id: id}
}

func (e *CustomerNotFoundErr) Error() string {
	return fmt.Sprintf("customer with id %s doesn't exist", e.id)
}

// ID returns requested customer id
func (e *CustomerNotFoundErr) ID() string {
	return e.id
}

// MarshalJSON implements json.Marshaler
func (e *CustomerNotFoundErr) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}{ID: e.id, Message: e.Error()})
}
