package pitch

import (
	"github.com/smallbiznis/pitchfund/internal/pitch/repository"
	"github.com/smallbiznis/pitchfund/internal/pitch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pitch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
