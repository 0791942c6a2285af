package tier

import (
	"github.com/smallbiznis/pitchfund/internal/tier/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.repository",
	fx.Provide(repository.Provide),
)
