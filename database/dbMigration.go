package database

import (
	"custody-engine/model"
	"custody-engine/utility/logger"
)

// RunDbMigrations ... Creates and updates tables for all models. The partial
// unique index keeps the "at most one ACTIVE hot wallet per (network, asset)"
// invariant enforced by the store rather than by application discipline alone.
func (database *Database) RunDbMigrations() {
	database.DB.AutoMigrate(
		&model.Wallet{},
		&model.DerivationCounter{},
		&model.UserBalance{},
		&model.SweepRecord{},
	)

	if database.DB.Dialect().GetName() == "mysql" {
		// MySQL has no partial indexes. A stored generated column that is NULL
		// for every row except an ACTIVE hot wallet gives the same uniqueness,
		// since NULLs never collide in a unique index.
		if !database.DB.Dialect().HasColumn("wallets", "active_hot_row") {
			if err := database.DB.Exec(
				`ALTER TABLE wallets ADD COLUMN active_hot_row TINYINT
				 AS (IF(role = 'HOT' AND status = 'ACTIVE', 1, NULL)) STORED`).Error; err != nil {
				logger.Warning("Could not create active hot wallet marker column : %s", err)
			}
		}
		if !database.DB.Dialect().HasIndex("wallets", "uix_active_hot_wallet") {
			if err := database.DB.Exec(
				`CREATE UNIQUE INDEX uix_active_hot_wallet
				 ON wallets (network, asset_symbol, active_hot_row)`).Error; err != nil {
				logger.Warning("Could not create active hot wallet unique index : %s", err)
			}
		}
	} else {
		if err := database.DB.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS uix_active_hot_wallet
			 ON wallets (network, asset_symbol)
			 WHERE role = 'HOT' AND status = 'ACTIVE'`).Error; err != nil {
			logger.Warning("Could not create active hot wallet unique index : %s", err)
		}
	}

	logger.Info("Database migration ran successfully")
}
