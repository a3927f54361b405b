// Command billing-server runs the point-of-sale billing API and dashboard.
package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	billing "github.com/xenking/pos-billing/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := billing.LoadConfig()
		if err != nil {
			return err
		}
		return billing.Run(ctx, lg, m, cfg)
	})
}
