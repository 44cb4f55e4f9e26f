package intake

import (
	"github.com/causabona/donare/internal/intake/service"
	"go.uber.org/fx"
)

var Module = fx.Module("intake",
	fx.Provide(service.NewService),
)
