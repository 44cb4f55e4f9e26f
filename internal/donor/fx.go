package donor

import (
	"github.com/causabona/donare/internal/donor/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("donor",
	fx.Provide(repository.Provide),
)
