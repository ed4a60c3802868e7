package notification

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/notification"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (notification.Dispatcher, error) {
		c := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		return NewSendGridDispatcher(SendGridConfig{
			APIKey:    c.SendGridAPIKey,
			BaseURL:   c.SendGridBaseURL,
			FromEmail: c.SendGridFromEmail,
			FromName:  c.SendGridFromName,
			Location:  c.ScheduleLocation(),
		}, repo), nil
	})
}
