package webhook

import "github.com/samber/do/v2"

// RegisterDI combines the named senders registered by the adapters.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (Sender, error) {
		return Fanout{
			do.MustInvokeNamed[Sender](i, HTTPSenderName),
			do.MustInvokeNamed[Sender](i, DiscordAlertSenderName),
		}, nil
	})
}
