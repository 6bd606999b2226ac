package timeusage

import (
	"github.com/brightops/usagesync/internal/timeusage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("timeusage",
	fx.Provide(service.NewService),
)
