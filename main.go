package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"custody-engine/chain"
	"custody-engine/chain/bitcoin"
	"custody-engine/chain/ethereum"
	"custody-engine/chain/ripple"
	"custody-engine/chain/solana"
	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/model"
	"custody-engine/services"
	"custody-engine/tasks/sweep"
	"custody-engine/tasks/treasury"
	"custody-engine/utility/apiClient"
	"custody-engine/utility/cache"
	"custody-engine/utility/constants"
	"custody-engine/utility/logger"

	"github.com/getsentry/sentry-go"
)

func main() {
	config := Config.Data{}
	config.Init("")

	if config.SentryDsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: config.SentryDsn}); err != nil {
			logger.Error("Sentry initialization failed : %s", err)
		}
	}

	Database := &database.Database{Config: config}
	Database.LoadDBInstance()
	defer Database.CloseDBInstance()
	Database.RunDbMigrations()

	memoryCache := cache.Initialize(time.Duration(config.ExpireCacheDuration)*time.Second,
		time.Duration(config.PurgeCacheInterval)*time.Second)

	registry := buildRegistry(config)

	locker, err := services.NewLocker(config)
	if err != nil {
		log.Fatal("Error creating locker ", err.Error())
	}

	repository := &database.WalletRepository{
		BaseRepository: database.BaseRepository{Database: database.Database{Config: config, DB: Database.DB}},
	}

	keyManagement := services.NewKeyManagementService(memoryCache, config, repository)
	hotWalletService := services.NewHotWalletService(memoryCache, config, repository, registry, locker, keyManagement)
	if err := hotWalletService.InitHotWallets(); err != nil {
		log.Fatal("Error initializing hot wallets ", err.Error())
	}

	sweep.ExecuteSweepCronJob(memoryCache, config, repository, registry, locker)
	treasury.ExecuteSnapshotCronJob(memoryCache, config, repository, registry)

	logger.Info("Custody engine started in %s mode for networks %v", config.NetworkMode, registry.SupportedNetworks())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown
	logger.Info("Custody engine shutting down")
}

// buildRegistry wires one adapter per configured node endpoint.
func buildRegistry(config Config.Data) *chain.Registry {
	ethChainID, bscChainID := int64(1), int64(56)
	if config.NetworkMode == constants.NETWORK_MODE_TESTNET {
		ethChainID, bscChainID = 5, 97
	}

	adapters := []chain.Adapter{}
	if config.EthereumNodeURL != "" {
		node := apiClient.New(nil, config, config.EthereumNodeURL)
		adapters = append(adapters, ethereum.New(constants.COIN_ETH, constants.COIN_ETH, model.NetworkDecimals[constants.COIN_ETH], ethChainID, node))
	}
	if config.BscNodeURL != "" {
		node := apiClient.New(nil, config, config.BscNodeURL)
		adapters = append(adapters, ethereum.New(constants.COIN_BSC, constants.COIN_BSC, model.NetworkDecimals[constants.COIN_BSC], bscChainID, node))
	}
	if config.BitcoinNodeURL != "" {
		adapters = append(adapters, bitcoin.New(config.NetworkMode, apiClient.New(nil, config, config.BitcoinNodeURL)))
	}
	if config.SolanaNodeURL != "" {
		adapters = append(adapters, solana.New(apiClient.New(nil, config, config.SolanaNodeURL)))
	}
	if config.RippleNodeURL != "" {
		adapters = append(adapters, ripple.New(apiClient.New(nil, config, config.RippleNodeURL)))
	}
	return chain.NewRegistry(adapters...)
}
