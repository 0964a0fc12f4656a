package migration

import (
	"github.com/smallbiznis/givebridge/internal/config"
	paymentdomain "github.com/smallbiznis/givebridge/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Apply),
)

// Apply brings the ledger schema up to date. Postgres uses the versioned
// migrations; other dialects fall back to gorm's AutoMigrate.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		log.Info("schema migrations disabled")
		return nil
	}

	if conn.Dialector.Name() != "postgres" {
		log.Info("auto migrating ledger schema", zap.String("dialect", conn.Dialector.Name()))
		return conn.AutoMigrate(&paymentdomain.EventRecord{})
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
