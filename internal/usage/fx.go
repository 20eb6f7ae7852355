package usage

import (
	"github.com/railzwaylabs/metering/internal/usage/repository"
	"github.com/railzwaylabs/metering/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
