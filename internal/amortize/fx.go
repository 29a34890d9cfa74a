package amortize

import (
	"github.com/smallbiznis/costlens/internal/amortize/service"
	"go.uber.org/fx"
)

var Module = fx.Module("amortize",
	fx.Provide(service.NewCalculator),
)
