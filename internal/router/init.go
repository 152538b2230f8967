package router

import (
	appuser "github.com/oksasatya/freshflower-auth/internal/application"
	"github.com/oksasatya/freshflower-auth/internal/container"
	"github.com/oksasatya/freshflower-auth/internal/infrastructure/esaudit"
	handlers "github.com/oksasatya/freshflower-auth/internal/interface/http"
	"github.com/oksasatya/freshflower-auth/internal/router/modules"
	"github.com/oksasatya/freshflower-auth/pkg/helpers"
)

type AuthModuleDeps struct {
	Service *appuser.Service
	Handler *handlers.AuthHandler
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	service := appuser.NewService(
		container.GetUserRepo(),
		helpers.NewBcryptHasher(cfg.BcryptCost),
		logger,
		cfg,
	)
	// Leave the interfaces nil rather than holding typed nil pointers.
	if es := container.GetES(); es != nil {
		service.Audit = esaudit.NewIndexer(es, cfg.ESAuditIndex)
	}
	if pub := container.GetRabbitPub(); pub != nil {
		service.Mail = pub
	}
	container.OnShutdown(service.Flush)

	return AuthModuleDeps{
		Service: service,
		Handler: handlers.NewAuthHandler(service, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	authDeps := buildAuthDeps()
	r.Add(modules.NewAuthModule(authDeps.Handler))
	r.Add(modules.NewDebugModule(handlers.NewHealthHandler(authDeps.Service, container.GetLogger())))
}
