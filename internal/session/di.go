package session

import (
	"github.com/foxseedlab/mensetsu/internal/config"
	"github.com/foxseedlab/mensetsu/internal/llm"
	"github.com/foxseedlab/mensetsu/internal/lock"
	"github.com/foxseedlab/mensetsu/internal/notification"
	"github.com/foxseedlab/mensetsu/internal/repository"
	"github.com/foxseedlab/mensetsu/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		questions := do.MustInvokeNamed[llm.Generator](i, llm.QuestionGeneratorName)
		scorer := do.MustInvokeNamed[llm.Generator](i, llm.ScorerName)
		dispatcher := do.MustInvoke[notification.Dispatcher](i)
		wh := do.MustInvoke[webhook.Sender](i)
		locker := do.MustInvoke[lock.Locker](i)
		return NewManager(cfg, repo, questions, scorer, dispatcher, wh, locker), nil
	})
}
