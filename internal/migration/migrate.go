// Package migration keeps the schema in sync at startup.
package migration

import (
	checkoutdomain "github.com/inkwavehq/inkwave/internal/checkout/domain"
	creditsdomain "github.com/inkwavehq/inkwave/internal/credits/domain"
	paymentdomain "github.com/inkwavehq/inkwave/internal/payment/domain"
	subscriptiondomain "github.com/inkwavehq/inkwave/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&creditsdomain.CreditBalance{},
		&creditsdomain.CreditLogEntry{},
		&subscriptiondomain.Subscription{},
		&checkoutdomain.CheckoutOrder{},
		&paymentdomain.WebhookEvent{},
	}
}

func Run(db *gorm.DB, log *zap.Logger) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return err
	}
	log.Info("schema migration complete")
	return nil
}

var Module = fx.Module("migration",
	fx.Invoke(Run),
)
