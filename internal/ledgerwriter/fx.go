package ledgerwriter

import (
	"github.com/smallbiznis/costlens/internal/ledgerwriter/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledgerwriter",
	fx.Provide(service.NewWriter),
)
