package investment

import (
	"github.com/smallbiznis/pitchfund/internal/investment/repository"
	"github.com/smallbiznis/pitchfund/internal/investment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("investment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
