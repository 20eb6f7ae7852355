package event

import (
	"github.com/railzwaylabs/metering/internal/event/repository"
	"github.com/railzwaylabs/metering/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
