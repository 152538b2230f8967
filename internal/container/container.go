package container

import (
	"context"
	"errors"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/freshflower-auth/config"
	repo "github.com/oksasatya/freshflower-auth/internal/domain/repository"
	"github.com/oksasatya/freshflower-auth/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router auto-wires modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userRepo    repo.UserRepository
	redisClient *redis.Client
	rabbitPub   *helpers.RabbitPublisher
	esClient    *elasticsearch.Client
	onShutdown  []func(context.Context) error
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = &config.Config{}
	}
	return cfg
}
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = helpers.NopLogger()
	}
	return logger
}
func SetUserRepo(r repo.UserRepository)       { userRepo = r }
func GetUserRepo() repo.UserRepository        { return userRepo }
func SetRedis(r *redis.Client)                { redisClient = r }
func GetRedis() *redis.Client                 { return redisClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }
func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }

// OnShutdown registers fn to run from Shutdown.
func OnShutdown(fn func(context.Context) error) { onShutdown = append(onShutdown, fn) }

// Shutdown runs the registered hooks in reverse order and joins their errors.
func Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(onShutdown) - 1; i >= 0; i-- {
		errs = append(errs, onShutdown[i](ctx))
	}
	return errors.Join(errs...)
}

// Reset clears every singleton. Tests use it between cases.
func Reset() {
	cfg, logger, userRepo, redisClient, rabbitPub, esClient = nil, nil, nil, nil, nil, nil
	onShutdown = nil
}
