package revenue

import (
	"github.com/brightops/usagesync/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue",
	fx.Provide(service.NewService),
)
