package response

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/bistro/pkg/errorbank"
)

const (
	// ErrorCauseKey is the echo context key holding the cause of an internal error.
	ErrorCauseKey = "response.error_cause"

	// HeaderTotalCount carries the number of rows in a list response.
	HeaderTotalCount = "X-Total-Count"
)

// ErrorEnvelope is the JSON body of every failed request. Successful
// requests render their payload directly.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    errorbank.Kind `json:"kind"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder accumulates a response and renders either the payload or an
// ErrorEnvelope.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
}

// New starts a 200 response for the request.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the status code. On errors it replaces the status
// derived from the error kind.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches the success payload.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError switches the response to the error envelope.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithTotalCount reports the size of a list payload in HeaderTotalCount.
func (b *Builder) WithTotalCount(n int) *Builder {
	b.ctx.Response().Header().Set(HeaderTotalCount, strconv.Itoa(n))
	return b
}

// Build writes the payload, or the error envelope when an error was recorded.
func (b *Builder) Build() error {
	if b.err != nil {
		return b.fail()
	}
	return b.ctx.JSON(b.status, b.data)
}

// NoContent writes an empty 204 unless an error was recorded.
func (b *Builder) NoContent() error {
	if b.err != nil {
		return b.fail()
	}
	return b.ctx.NoContent(http.StatusNoContent)
}

func (b *Builder) fail() error {
	appErr := errorbank.From(b.err)

	status := appErr.StatusCode()
	if b.status >= http.StatusBadRequest {
		status = b.status
	}
	header := b.ctx.Response().Header()
	header.Del(HeaderTotalCount)
	if status == http.StatusUnauthorized {
		header.Set(echo.HeaderWWWAuthenticate, "Bearer")
	}
	if appErr.Kind() == errorbank.KindInternal && appErr.Cause() != nil {
		// Picked up by the request logger; the body carries only the message.
		b.ctx.Set(ErrorCauseKey, appErr.Cause())
	}

	return b.ctx.JSON(status, ErrorEnvelope{
		Error: ErrorBody{
			Kind:    appErr.Kind(),
			Message: appErr.Message(),
			Details: appErr.Details(),
		},
	})
}
