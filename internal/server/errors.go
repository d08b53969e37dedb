package server

import (
	"github.com/labstack/echo/v4"

	"github.com/joseph-ayodele/intake-tracker/internal/common"
)

// httpError maps the error chain onto a status. Server errors carry prefix; client errors keep
// their own message.
func httpError(err error, prefix string) *echo.HTTPError {
	code := common.HTTPStatus(err)
	if code >= 500 {
		return echo.NewHTTPError(code, prefix+": "+err.Error())
	}
	return echo.NewHTTPError(code, err.Error())
}

func errInvalidArg(msg string) *echo.HTTPError {
	return echo.NewHTTPError(400, msg)
}
