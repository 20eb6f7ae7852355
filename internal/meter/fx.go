package meter

import (
	"github.com/railzwaylabs/metering/internal/meter/repository"
	"github.com/railzwaylabs/metering/internal/meter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("meter.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
