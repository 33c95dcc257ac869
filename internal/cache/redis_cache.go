package cache

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"clinic-qr-tracker/configs"

	"github.com/go-redis/redis/v8"
	"github.com/patrickmn/go-cache"
)

// EventStreamChannel carries recorded tracking events between instances so
// every websocket hub sees the full feed.
const EventStreamChannel = "tracking_events"

type CacheManager struct {
	redisClient *redis.Client
	localCache  *cache.Cache
	pubSub      *redis.PubSub
	ctx         context.Context
	mu          sync.RWMutex

	handlerMu sync.RWMutex
	handlers  []func([]byte)
}

var (
	instance *CacheManager
	once     sync.Once
)

func GetCacheManager() *CacheManager {
	once.Do(func() {
		instance = &CacheManager{
			ctx:        context.Background(),
			localCache: cache.New(5*time.Minute, 10*time.Minute),
		}
		instance.initialize()
	})
	return instance
}

func (cm *CacheManager) initialize() {
	opts, err := redis.ParseURL(configs.AppConfig.RedisURL)
	if err != nil {
		opts = &redis.Options{
			Addr: configs.AppConfig.RedisURL,
			DB:   0,
		}
	}

	cm.redisClient = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
	defer cancel()

	if err := cm.redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Redis connection failed, using local cache only: %v", err)
		cm.redisClient = nil
	} else {
		log.Println("Redis connection established successfully")

		cm.pubSub = cm.redisClient.Subscribe(cm.ctx, EventStreamChannel)
		go cm.listenForEvents()
	}
}

func (cm *CacheManager) listenForEvents() {
	if cm.pubSub == nil {
		return
	}

	ch := cm.pubSub.Channel()
	for msg := range ch {
		cm.handlerMu.RLock()
		handlers := cm.handlers
		cm.handlerMu.RUnlock()

		for _, handler := range handlers {
			handler([]byte(msg.Payload))
		}
	}
}

// OnEvent registers a handler for the cross-instance event stream. Handlers
// run on the pub/sub goroutine and must not block.
func (cm *CacheManager) OnEvent(handler func([]byte)) {
	cm.handlerMu.Lock()
	cm.handlers = append(cm.handlers, handler)
	cm.handlerMu.Unlock()
}

// PublishEvent pushes a recorded event onto the stream. Best-effort: callers
// never see an error, and local handlers still run when redis is down.
func (cm *CacheManager) PublishEvent(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal event stream payload: %v", err)
		return
	}

	if cm.redisClient == nil {
		cm.handlerMu.RLock()
		handlers := cm.handlers
		cm.handlerMu.RUnlock()
		for _, handler := range handlers {
			handler(data)
		}
		return
	}

	ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
	defer cancel()

	if err := cm.redisClient.Publish(ctx, EventStreamChannel, data).Err(); err != nil {
		log.Printf("Failed to publish to event stream: %v", err)
	}
}

func (cm *CacheManager) Set(key string, value interface{}, ttl time.Duration) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.localCache.Set(key, value, ttl)

	if cm.redisClient != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()

		return cm.redisClient.Set(ctx, key, data, ttl).Err()
	}

	return nil
}

func (cm *CacheManager) Get(key string, target interface{}) (bool, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if val, found := cm.localCache.Get(key); found {
		data, err := json.Marshal(val)
		if err != nil {
			return false, err
		}
		return true, json.Unmarshal(data, target)
	}

	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()

		data, err := cm.redisClient.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return false, nil
		} else if err != nil {
			return false, err
		}

		cm.localCache.Set(key, data, 5*time.Minute)

		return true, json.Unmarshal(data, target)
	}

	return false, nil
}

func (cm *CacheManager) Delete(key string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.localCache.Delete(key)

	if cm.redisClient != nil {
		ctx, cancel := context.WithTimeout(cm.ctx, 5*time.Second)
		defer cancel()
		return cm.redisClient.Del(ctx, key).Err()
	}

	return nil
}

// incrWindowScript increments and attaches the window TTL in one script call;
// splitting INCR and EXPIRE leaves an immortal counter key if the process
// dies or EXPIRE fails between the two commands.
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count`)

// IncrWindow implements the rate-limit counter contract on redis. Returns an
// error when redis is unavailable so the caller can decide its own fallback.
func (cm *CacheManager) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	if cm.redisClient == nil {
		return 0, redis.ErrClosed
	}

	return incrWindowScript.Run(ctx, cm.redisClient, []string{key}, window.Milliseconds()).Int64()
}

func (cm *CacheManager) IsAvailable() bool {
	return cm.redisClient != nil
}
