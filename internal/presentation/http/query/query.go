// Package query parses the shared query string parameters of the reporting
// endpoints.
package query

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	orderrepo "github.com/Additional-Code/bistro/internal/repository/order"
	"github.com/Additional-Code/bistro/pkg/errorbank"
)

// Date parses a YYYY-MM-DD or RFC 3339 value. dateOnly reports which form
// was used. Blank input yields nil.
func Date(name, raw string) (t *time.Time, dateOnly bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false, nil
	}
	if d, err := time.ParseInLocation(time.DateOnly, raw, time.UTC); err == nil {
		return &d, true, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, false, errorbank.BadRequest("invalid "+name+": expected YYYY-MM-DD or RFC 3339",
			errorbank.WithDetail(name, raw))
	}
	ts = ts.UTC()
	return &ts, false, nil
}

// Period reads date_from and date_to. A date-only date_to covers the whole
// day, so the bound moves to the next midnight and becomes exclusive.
func Period(c echo.Context) (orderrepo.Period, error) {
	from, _, err := Date("date_from", c.QueryParam("date_from"))
	if err != nil {
		return orderrepo.Period{}, err
	}
	to, dateOnly, err := Date("date_to", c.QueryParam("date_to"))
	if err != nil {
		return orderrepo.Period{}, err
	}

	p := orderrepo.Period{From: from, To: to}
	if to != nil && dateOnly {
		next := to.AddDate(0, 0, 1)
		p.To = &next
		p.ToExclusive = true
	}
	return p, nil
}

// ID parses a positive integer path parameter.
func ID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errorbank.BadRequest("invalid "+name, errorbank.WithDetail(name, c.Param(name)))
	}
	return id, nil
}

// Bool parses a required boolean query parameter.
func Bool(c echo.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return false, errorbank.BadRequest(name + " is required")
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errorbank.BadRequest("invalid "+name, errorbank.WithDetail(name, raw))
	}
	return v, nil
}
