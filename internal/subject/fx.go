package subject

import (
	"github.com/railzwaylabs/metering/internal/subject/repository"
	"github.com/railzwaylabs/metering/internal/subject/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subject.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
