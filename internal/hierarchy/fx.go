package hierarchy

import (
	"github.com/smallbiznis/costlens/internal/hierarchy/service"
	"go.uber.org/fx"
)

var Module = fx.Module("hierarchy",
	fx.Provide(service.NewService),
)
