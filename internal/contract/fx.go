package contract

import (
	"github.com/brightops/usagesync/internal/contract/service"
	"go.uber.org/fx"
)

var Module = fx.Module("contract",
	fx.Provide(service.NewService),
)
