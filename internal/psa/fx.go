package psa

import (
	psadomain "github.com/brightops/usagesync/internal/psa/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("psa",
	fx.Provide(ClientConfigFromApp),
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) psadomain.Client { return c }),
)
