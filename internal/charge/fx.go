package charge

import (
	"github.com/causabona/donare/internal/wompi"
	"go.uber.org/fx"
)

var Module = fx.Module("charge",
	fx.Provide(func(c *wompi.Client) Gateway { return c }),
	fx.Provide(NewService),
)
