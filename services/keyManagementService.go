package services

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"

	Config "custody-engine/config"
	"custody-engine/database"
	"custody-engine/dto"
	"custody-engine/model"
	"custody-engine/utility/appError"
	"custody-engine/utility/cache"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tarancss/hd"
)

const hardenedOffset = uint32(0x80000000)

// Master seed state is process wide. The seed loads once, scoped to the
// configured network mode, and is never persisted or logged.
var (
	seedOnce   sync.Once
	masterSeed []byte
	evmWallet  *hd.HdWallet
	seedErr    error
)

//KeyManagementService object
type KeyManagementService struct {
	Cache      *cache.Memory
	Config     Config.Data
	Repository database.IRepository
}

func NewKeyManagementService(cache *cache.Memory, config Config.Data, repository database.IRepository) *KeyManagementService {
	return &KeyManagementService{
		Cache:      cache,
		Config:     config,
		Repository: repository,
	}
}

// DeriveKey ... Derives the key pair for a network at a derivation index.
// Indexes are non-negative and assigned by the per-network counter; the same
// (network, index) always yields the same key material.
func (service *KeyManagementService) DeriveKey(network string, derivationIndex int64) (dto.KeyMaterial, error) {
	if derivationIndex < 0 || derivationIndex > math.MaxUint32 {
		return dto.KeyMaterial{}, appError.New(errorcode.INVALID_DERIVATION_INDEX,
			fmt.Errorf("derivation index %d is out of range", derivationIndex))
	}
	if err := service.loadSeed(); err != nil {
		return dto.KeyMaterial{}, err
	}

	var privateKey, publicKey []byte
	var err error
	switch network {
	case constants.COIN_ETH, constants.COIN_BSC:
		privateKey, publicKey, err = deriveEvmKey(uint32(derivationIndex))
	case constants.COIN_BTC, constants.COIN_XRP:
		privateKey, publicKey, err = service.deriveSecpKey(model.NetworkCoinTypes[network], uint32(derivationIndex))
	case constants.COIN_SOL:
		privateKey, publicKey, err = deriveEd25519Key(masterSeed, uint32(derivationIndex))
	default:
		return dto.KeyMaterial{}, appError.New(errorcode.UNSUPPORTED_NETWORK,
			fmt.Errorf("no key derivation scheme for network %s", network))
	}
	if err != nil {
		return dto.KeyMaterial{}, err
	}

	return dto.KeyMaterial{
		Network:         network,
		DerivationIndex: derivationIndex,
		PrivateKey:      privateKey,
		PublicKey:       publicKey,
	}, nil
}

// loadSeed decodes the master seed for the configured network mode. Mainnet
// and testnet seeds are distinct so a misconfigured environment can never sign
// against the wrong universe.
func (service *KeyManagementService) loadSeed() error {
	seedOnce.Do(func() {
		seedHex := service.Config.MasterSeed
		if service.Config.NetworkMode == constants.NETWORK_MODE_TESTNET {
			seedHex = service.Config.TestMasterSeed
		}
		if seedHex == "" {
			seedErr = appError.New(errorcode.SEED_UNAVAILABLE,
				fmt.Errorf("no master seed configured for %s mode", service.Config.NetworkMode))
			return
		}
		decoded, err := hex.DecodeString(seedHex)
		if err != nil {
			seedErr = appError.New(errorcode.SEED_UNAVAILABLE, fmt.Errorf("master seed is not valid hex : %s", err))
			return
		}
		wallet, err := hd.Init(decoded)
		if err != nil {
			seedErr = appError.New(errorcode.SEED_UNAVAILABLE, err)
			return
		}
		masterSeed = decoded
		evmWallet = wallet
	})
	return seedErr
}

func deriveEvmKey(derivationIndex uint32) ([]byte, []byte, error) {
	_, privateKey, _, err := evmWallet.Address(0, hd.External, derivationIndex)
	if err != nil {
		return nil, nil, appError.New(errorcode.INVALID_DERIVATION_INDEX, err)
	}
	secpKey, secpPub := btcec.PrivKeyFromBytes(privateKey)
	return secpKey.Serialize(), secpPub.SerializeCompressed(), nil
}

// deriveSecpKey walks the BIP-44 path m/44'/coinType'/0'/0/index.
func (service *KeyManagementService) deriveSecpKey(coinType uint32, derivationIndex uint32) ([]byte, []byte, error) {
	params := &chaincfg.MainNetParams
	if service.Config.NetworkMode == constants.NETWORK_MODE_TESTNET {
		params = &chaincfg.TestNet3Params
	}
	master, err := hdkeychain.NewMaster(masterSeed, params)
	if err != nil {
		return nil, nil, appError.New(errorcode.SEED_UNAVAILABLE, err)
	}
	path := []uint32{
		hardenedOffset + 44,
		hardenedOffset + coinType,
		hardenedOffset,
		0,
		derivationIndex,
	}
	key := master
	for _, childIndex := range path {
		if key, err = key.Derive(childIndex); err != nil {
			return nil, nil, appError.New(errorcode.INVALID_DERIVATION_INDEX, err)
		}
	}
	secpKey, err := key.ECPrivKey()
	if err != nil {
		return nil, nil, err
	}
	return secpKey.Serialize(), secpKey.PubKey().SerializeCompressed(), nil
}

// deriveEd25519Key walks the SLIP-0010 hardened-only path m/44'/501'/index'
// over the ed25519 curve.
func deriveEd25519Key(seed []byte, derivationIndex uint32) ([]byte, []byte, error) {
	if len(seed) == 0 {
		return nil, nil, appError.New(errorcode.SEED_UNAVAILABLE, errors.New("master seed is empty"))
	}
	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	digest := mac.Sum(nil)
	key, chainCode := digest[:32], digest[32:]

	for _, pathIndex := range []uint32{44, 501, derivationIndex} {
		childIndex := hardenedOffset + pathIndex
		var serialized [4]byte
		binary.BigEndian.PutUint32(serialized[:], childIndex)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write([]byte{0x00})
		mac.Write(key)
		mac.Write(serialized[:])
		digest = mac.Sum(nil)
		key, chainCode = digest[:32], digest[32:]
	}

	edKey := ed25519.NewKeyFromSeed(key)
	return key, edKey.Public().(ed25519.PublicKey), nil
}
