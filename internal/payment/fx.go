package payment

import (
	"github.com/causabona/donare/internal/payment/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideEvents),
)
