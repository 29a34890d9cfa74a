package focus

import (
	"github.com/smallbiznis/costlens/internal/focus/service"
	"go.uber.org/fx"
)

var Module = fx.Module("focus",
	fx.Provide(service.NewMapper),
)
