package portfolio

import (
	"github.com/smallbiznis/pitchfund/internal/portfolio/service"
	"go.uber.org/fx"
)

var Module = fx.Module("portfolio.service",
	fx.Provide(service.New),
)
