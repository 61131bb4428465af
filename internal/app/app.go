package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/bistro/internal/cache"
	"github.com/Additional-Code/bistro/internal/config"
	"github.com/Additional-Code/bistro/internal/database"
	"github.com/Additional-Code/bistro/internal/logger"
	"github.com/Additional-Code/bistro/internal/messaging"
	"github.com/Additional-Code/bistro/internal/observability"
	repositorymenu "github.com/Additional-Code/bistro/internal/repository/menu"
	repositoryorder "github.com/Additional-Code/bistro/internal/repository/order"
	repositoryuser "github.com/Additional-Code/bistro/internal/repository/user"
	"github.com/Additional-Code/bistro/internal/security"
	grpcserver "github.com/Additional-Code/bistro/internal/server/grpc"
	httpserver "github.com/Additional-Code/bistro/internal/server/http"
	serviceauth "github.com/Additional-Code/bistro/internal/service/auth"
	servicemenu "github.com/Additional-Code/bistro/internal/service/menu"
	serviceorder "github.com/Additional-Code/bistro/internal/service/order"
	servicestats "github.com/Additional-Code/bistro/internal/service/stats"
	transporthttp "github.com/Additional-Code/bistro/internal/transport/http"
	"github.com/Additional-Code/bistro/internal/worker"
	workermenu "github.com/Additional-Code/bistro/internal/worker/menu"
)

// Base is configuration, logging and the database: enough for maintenance
// commands that must not depend on Redis or Kafka.
var Base = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
)

// Accounts adds what manager provisioning needs on top of Base.
var Accounts = fx.Options(
	Base,
	repositoryuser.Module,
	security.Module,
	serviceauth.Module,
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	Accounts,
	cache.Module,
	messaging.Module,
	observability.Module,
	repositorymenu.Module,
	repositoryorder.Module,
	servicemenu.Module,
	serviceorder.Module,
	servicestats.Module,
)

// HTTP wires the HTTP and gRPC servers on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workermenu.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
