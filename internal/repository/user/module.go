package user

import "go.uber.org/fx"

// Module provides the manager user repository to Fx.
var Module = fx.Provide(NewRepository)
