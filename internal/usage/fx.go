package usage

import (
	"github.com/brightops/usagesync/internal/usage/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("usage",
	fx.Provide(repository.Provide),
)
