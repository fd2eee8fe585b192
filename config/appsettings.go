package config

import (
	"fmt"
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

//Data : config data
type Data struct {
	ServiceName        string `mapstructure:"serviceName"  yaml:"serviceName,omitempty"`
	DBHost             string `mapstructure:"dbHost"  yaml:"dbHost,omitempty"`
	DBUser             string `mapstructure:"dbUser"  yaml:"dbUser,omitempty"`
	DBPassword         string `mapstructure:"dbPassword"  yaml:"dbPassword,omitempty"`
	DBName             string `mapstructure:"dbName"  yaml:"dbName,omitempty"`
	MaxIdleConns       int    `mapstructure:"maxIdleConns"  yaml:"maxIdleConns,omitempty"`
	MaxOpenConns       int    `mapstructure:"maxOpenConns"  yaml:"maxOpenConns,omitempty"`
	ConnMaxLifetime    int    `mapstructure:"connMaxLifetime"  yaml:"connMaxLifetime,omitempty"`
	SentryDsn          string `mapstructure:"sentryDsn"  yaml:"sentryDsn,omitempty"`
	PurgeCacheInterval int64  `mapstructure:"purgeCacheInterval"  yaml:"purgeCacheInterval,omitempty"`
	ExpireCacheDuration int64 `mapstructure:"expireCacheDuration"  yaml:"expireCacheDuration,omitempty"`

	// NetworkMode selects which master seed and chain parameters are active,
	// either "mainnet" or "testnet".
	NetworkMode     string `mapstructure:"networkMode"  yaml:"networkMode,omitempty"`
	MasterSeed      string `mapstructure:"masterSeed"  yaml:"masterSeed,omitempty"`
	TestMasterSeed  string `mapstructure:"testMasterSeed"  yaml:"testMasterSeed,omitempty"`

	EthereumNodeURL string `mapstructure:"ethereumNodeURL"  yaml:"ethereumNodeURL,omitempty"`
	BscNodeURL      string `mapstructure:"bscNodeURL"  yaml:"bscNodeURL,omitempty"`
	BitcoinNodeURL  string `mapstructure:"bitcoinNodeURL"  yaml:"bitcoinNodeURL,omitempty"`
	SolanaNodeURL   string `mapstructure:"solanaNodeURL"  yaml:"solanaNodeURL,omitempty"`
	RippleNodeURL   string `mapstructure:"rippleNodeURL"  yaml:"rippleNodeURL,omitempty"`

	RequestTimeout   int `mapstructure:"requestTimeout"  yaml:"requestTimeout,omitempty"`
	MaxRetryAttempts int `mapstructure:"maxRetryAttempts"  yaml:"maxRetryAttempts,omitempty"`
	RetryBaseDelayMs int `mapstructure:"retryBaseDelayMs"  yaml:"retryBaseDelayMs,omitempty"`

	LockerType   string `mapstructure:"lockerType"  yaml:"lockerType,omitempty"`
	LockerPrefix string `mapstructure:"lockerPrefix"  yaml:"lockerPrefix,omitempty"`
	RedisURL     string `mapstructure:"redisURL"  yaml:"redisURL,omitempty"`
	RedisPassword string `mapstructure:"redisPassword"  yaml:"redisPassword,omitempty"`

	SweepCronInterval    string `mapstructure:"sweepCronInterval"  yaml:"sweepCronInterval,omitempty"`
	SnapshotCronInterval string `mapstructure:"snapshotCronInterval"  yaml:"snapshotCronInterval,omitempty"`

	// DustThresholds maps asset symbol to a display-unit minimum sweep value,
	// converted to base units at the sweep boundary.
	DustThresholds map[string]string `mapstructure:"dustThresholds"  yaml:"dustThresholds,omitempty"`

	StalenessThresholdSeconds int64 `mapstructure:"stalenessThresholdSeconds"  yaml:"stalenessThresholdSeconds,omitempty"`
}

//Init : initialize data
func (c *Data) Init(configDir string) {

	dir, dirErr := os.Getwd()
	if dirErr != nil {
		log.Printf("Cannot set default input/output directory to the current working directory >> %s", dirErr)
	}

	viper.SetEnvPrefix("ces") // prefix all env variables with CES (Custody Engine Service)
	viper.AutomaticEnv()
	viper.BindEnv("networkMode")
	viper.BindEnv("masterSeed")
	viper.BindEnv("testMasterSeed")
	viper.BindEnv("dbPassword")
	viper.BindEnv("redisPassword")
	viper.BindEnv("sentryDsn")

	viper.SetConfigName("config")
	viper.AddConfigPath("../")
	viper.AddConfigPath(dir)
	viper.AddConfigPath(configDir)
	viper.WatchConfig()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			panic(fmt.Errorf("\n Configuration file not found >>%s ", err))
		} else {
			panic(fmt.Errorf("\n fatal error: could not read from config file >>%s ", err))
		}
	}

	viper.OnConfigChange(func(e fsnotify.Event) {
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				panic(fmt.Errorf("\n Configuration file not found >>%s ", err))
			} else {
				panic(fmt.Errorf("\n fatal error: could not read from config file >>%s ", err))
			}
		}
		viper.Unmarshal(c)
		fmt.Println("Config file changed:", e.Name)
	})

	viper.Unmarshal(c)
	log.Println("App configuration loaded successfully!")
}
