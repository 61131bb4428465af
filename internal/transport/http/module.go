package http

import (
	"go.uber.org/fx"

	authtransport "github.com/Additional-Code/bistro/internal/transport/http/auth"
	diagnosticstransport "github.com/Additional-Code/bistro/internal/transport/http/diagnostics"
	menutransport "github.com/Additional-Code/bistro/internal/transport/http/menu"
	"github.com/Additional-Code/bistro/internal/transport/http/middleware"
	ordertransport "github.com/Additional-Code/bistro/internal/transport/http/order"
	statstransport "github.com/Additional-Code/bistro/internal/transport/http/stats"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	middleware.Module,
	diagnosticstransport.Module,
	authtransport.Module,
	menutransport.Module,
	ordertransport.Module,
	statstransport.Module,
)
