package httpapi

import (
	"net/http"

	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/session"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (http.Handler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*session.Manager](i)
		return NewRouter(NewHandler(manager), cfg.CORSAllowedOrigins), nil
	})
}
