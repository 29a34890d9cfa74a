package cloudspend

import (
	"github.com/smallbiznis/costlens/internal/cloudspend/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("cloudspend",
	fx.Provide(repository.Provide),
)
