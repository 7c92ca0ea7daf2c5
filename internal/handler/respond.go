// Package handler holds the echo HTTP handlers.  Handlers parse and check
// request input, call one service operation and shape the JSON response;
// they hold no business rules of their own.
package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// validate checks request bodies and single query values.  Failures are
// reported under the json field name.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// validationFailed writes the 400 body shared by every endpoint:
// {"error":"validation_error","fields":{"<param>":"<rule>"}}.
func validationFailed(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  "validation_error",
		"fields": fields,
	})
}

func internalError(c echo.Context, err error, msg string) error {
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error"})
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["body"] = "invalid"
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}
