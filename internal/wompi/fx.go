package wompi

import (
	"github.com/causabona/donare/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("wompi",
	fx.Provide(func(cfg config.Config) Environment {
		return ResolveEnvironment(cfg.Wompi)
	}),
	fx.Provide(NewClient),
)
