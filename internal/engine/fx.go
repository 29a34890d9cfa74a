package engine

import (
	enginedomain "github.com/smallbiznis/costlens/internal/engine/domain"
	"github.com/smallbiznis/costlens/internal/engine/service"
	"github.com/smallbiznis/costlens/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("engine",
	fx.Provide(repository.ProvideStore[enginedomain.PipelineRun]),
	fx.Provide(service.NewService),
)
