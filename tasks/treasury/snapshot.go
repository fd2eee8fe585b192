package treasury

import (
	"context"
	"encoding/json"

	"custody-engine/chain"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/services"
	"custody-engine/utility/cache"
	"custody-engine/utility/logger"

	"github.com/robfig/cron/v3"
)

const snapshotCacheKey = "treasury_snapshot"

// TakeSnapshot ... Computes the treasury position for every custodied asset
// and logs any asset whose on-chain holdings diverge from the recorded
// ledger liability. The latest snapshot is cached for operator queries.
func TakeSnapshot(memoryCache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry) {
	logger.Info("Treasury snapshot job begins")

	treasuryService := services.NewTreasuryService(memoryCache, config, repository, registry)
	snapshot, err := treasuryService.ComputeSnapshot(context.Background())
	if err != nil {
		logger.Error("Error response from Treasury snapshot job : %+v", err)
		return
	}

	for _, position := range snapshot.PerAsset {
		if position.Delta != "0" {
			logger.Warning("Treasury divergence on %s %s : custodied %s, liability %s, delta %s (stale=%t)",
				position.Network, position.AssetSymbol, position.Custodied, position.LedgerLiability, position.Delta, position.Stale)
		}
	}

	encoded, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("Error response from Treasury snapshot job : could not encode snapshot %+v", err)
		return
	}
	memoryCache.Set(snapshotCacheKey, encoded, true)
	logger.Info("Treasury snapshot job ends, %d assets", len(snapshot.PerAsset))
}

func ExecuteSnapshotCronJob(memoryCache *cache.Memory, config Config.Data, repository database.IWalletRepository,
	registry *chain.Registry) {
	c := cron.New()
	c.AddFunc(config.SnapshotCronInterval, func() { TakeSnapshot(memoryCache, config, repository, registry) })
	c.Start()
}
