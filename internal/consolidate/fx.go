package consolidate

import (
	"github.com/smallbiznis/costlens/internal/consolidate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("consolidate",
	fx.Provide(service.NewService),
)
