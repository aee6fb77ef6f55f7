package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	appErrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/validation"
)

const internalErrorMessage = "Internal server error"

// HTTPErrorHandler logs error and responds with status matching its kind
func HTTPErrorHandler(err error, c echo.Context) {
	logrus.WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Path(),
	}).Errorf("error occurred on http request processing - %v", err)

	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}

	if err != nil {
		logrus.Errorf("failed to send error response - %v", err)
	}
}

func errorResponse(err error) (int, any) {
	var pldErr *validation.PayloadError
	if errors.As(err, &pldErr) {
		return http.StatusBadRequest, pldErr
	}

	var ruleErr *appErrors.CustomerRuleErr
	if errors.As(err, &ruleErr) {
		return http.StatusBadRequest, ruleErr
	}

	var notFoundErr *appErrors.CustomerNotFoundErr
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, notFoundErr
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Internal != nil {
			if inner, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = inner
			}
		}

		msg := httpErr.Message
		if _, ok := msg.(string); ok {
			msg = echo.Map{"message": msg}
		}
		return httpErr.Code, msg
	}

	return http.StatusInternalServerError, echo.Map{"message": internalErrorMessage}
}
