package services

import (
	"fmt"
	"strings"
	"sync"
	"time"

	Config "custody-engine/config"
	"custody-engine/utility/appError"
	"custody-engine/utility/constants"
	"custody-engine/utility/errorcode"

	"github.com/go-redis/redis/v7"
	uuid "github.com/satori/go.uuid"
)

// ILocker serializes mutating flows on a (network, asset) pair. Acquire is
// non-blocking: a held lock fails fast with LOCK_UNAVAILABLE so overlapping
// sweep runs skip rather than queue.
type ILocker interface {
	Acquire(key string, ttl time.Duration) (string, error)
	Release(key, token string) error
}

// NewLocker ... Builds the locker the configuration selects. Redis when the
// engine runs replicated, in-process otherwise.
func NewLocker(config Config.Data) (ILocker, error) {
	switch config.LockerType {
	case constants.LOCKER_TYPE_REDIS:
		client := redis.NewClient(&redis.Options{
			Addr:     config.RedisURL,
			Password: config.RedisPassword,
		})
		if err := client.Ping().Err(); err != nil {
			return nil, err
		}
		return &RedisLocker{Client: client, Prefix: config.LockerPrefix}, nil
	case constants.LOCKER_TYPE_MEMORY, "":
		return NewMemoryLocker(), nil
	default:
		return nil, fmt.Errorf("unknown locker type %s", config.LockerType)
	}
}

// LockKey ... Canonical lock key for a (network, asset symbol) pair.
func LockKey(network, assetSymbol string) string {
	return strings.Join([]string{network, assetSymbol}, constants.SEPERATOR)
}

//RedisLocker object
type RedisLocker struct {
	Client *redis.Client
	Prefix string
}

func (locker *RedisLocker) Acquire(key string, ttl time.Duration) (string, error) {
	token := uuid.NewV4().String()
	acquired, err := locker.Client.SetNX(locker.Prefix+key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !acquired {
		return "", appError.New(errorcode.LOCK_UNAVAILABLE, fmt.Errorf("lock %s is held", key))
	}
	return token, nil
}

// Release ... Deletes the lock only when the token matches, so an expired
// holder cannot release a lock someone else has since acquired.
func (locker *RedisLocker) Release(key, token string) error {
	current, err := locker.Client.Get(locker.Prefix + key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	if current != token {
		return appError.New(errorcode.LOCK_UNAVAILABLE, fmt.Errorf("lock %s is held by another owner", key))
	}
	return locker.Client.Del(locker.Prefix + key).Err()
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

//MemoryLocker object
type MemoryLocker struct {
	mutex sync.Mutex
	locks map[string]memoryLock
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]memoryLock)}
}

func (locker *MemoryLocker) Acquire(key string, ttl time.Duration) (string, error) {
	locker.mutex.Lock()
	defer locker.mutex.Unlock()

	if held, ok := locker.locks[key]; ok && time.Now().Before(held.expiresAt) {
		return "", appError.New(errorcode.LOCK_UNAVAILABLE, fmt.Errorf("lock %s is held", key))
	}
	token := uuid.NewV4().String()
	locker.locks[key] = memoryLock{token: token, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

func (locker *MemoryLocker) Release(key, token string) error {
	locker.mutex.Lock()
	defer locker.mutex.Unlock()

	held, ok := locker.locks[key]
	if !ok {
		return nil
	}
	if held.token != token {
		return appError.New(errorcode.LOCK_UNAVAILABLE, fmt.Errorf("lock %s is held by another owner", key))
	}
	delete(locker.locks, key)
	return nil
}
