package config

import "strconv"

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Redis struct{}

var _ RedisConfig = Redis{}

func (Redis) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Redis) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Redis) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}

func (Redis) GetRedisKeyPrefix() string {
	return GetEnv("REDIS_KEY_PREFIX", "merchant-console:")
}
