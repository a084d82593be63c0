package main

import (
	"context"
	"fmt"

	"github.com/fiware/agent-trust-registry/config"
	"github.com/fiware/agent-trust-registry/db/migrations"
	"github.com/fiware/agent-trust-registry/didregistry"
	client "github.com/fiware/agent-trust-registry/http"
	"github.com/fiware/agent-trust-registry/lifecycle"
	"github.com/fiware/agent-trust-registry/logging"
	"github.com/fiware/agent-trust-registry/registry"
	"github.com/fiware/agent-trust-registry/repository"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/penglongli/gin-metrics/ginmetrics"
	"github.com/prometheus/client_golang/prometheus"
)

var logger = logging.Log()

/**
* Startup method to run the gin-server.
 */
func main() {
	if err := godotenv.Load(); err != nil {
		logger.Infof("No .env file loaded, only the environment is used. %v", err)
	}
	envConfig := config.EnvConfig{}
	ctx := context.Background()

	repo := newRepository(ctx, envConfig.Database())
	scoreModel, err := config.LoadScoreModel(envConfig.ScoreModelFile())
	if err != nil {
		logger.Fatalf("Was not able to load the score model. Err: %v", err)
	}

	var issuer lifecycle.CredentialIssuer
	var publisher registry.DidPublisher
	var resolver didregistry.Resolver
	var verifier registry.CredentialVerifier
	registryConfig := envConfig.DidRegistry()
	if registryConfig.Url != "" || registryConfig.ApiKey != "" {
		registryClient := didregistry.NewClient(registryConfig, client.HttpClient())
		issuer = registryClient
		publisher = registryClient
		verifier = registryClient
		resolver = newResolver(ctx, registryClient, envConfig.Cache())
		logger.Infof("Using the did registry at %s.", registryClient.Url())
	} else {
		logger.Warn("No did registry configured. Agents need to bring their own did and credentials are stored without vc.")
	}

	metrics := lifecycle.NewMetrics(prometheus.DefaultRegisterer)
	controller := lifecycle.NewController(repo, issuer, scoreModel, metrics)
	service := registry.NewService(repo, publisher, resolver, verifier, scoreModel)

	if err := client.RegisterCheck("database", repo, false); err != nil {
		logger.Warnf("Was not able to register the database health check. Err: %v", err)
	}

	router := gin.New()
	router.Use(logging.GinHandlerFunc(), gin.Recovery())

	router.GET("/health", client.HealthReq)

	// request metrics, exposed together with the lifecycle metrics of the default registry
	monitor := ginmetrics.GetMonitor()
	monitor.SetMetricPath("/metrics")
	monitor.Use(router)

	lifecycle.NewRequestController(controller).RegisterRoutes(router)
	registry.NewAgentController(service).RegisterRoutes(router)
	registry.NewVerificationController(service).RegisterRoutes(router)

	serverPort := envConfig.ServerPort()
	logger.Infof("Start router at %v", serverPort)
	if err := router.Run(fmt.Sprintf("0.0.0.0:%v", serverPort)); err != nil {
		logger.Fatalf("Router stopped. Err: %v", err)
	}
}

func newRepository(ctx context.Context, dbConfig config.DatabaseConfig) repository.Repository {
	relRepo, err := repository.OpenDatabase(dbConfig)
	if err == repository.ErrNoDatabase {
		logger.Warn("Agents are kept in-memory. No persistence will be applied, do NEVER use this for anything but development or testing!")
		return repository.NewInMemoryRepo()
	}
	if err != nil {
		logger.Fatalf("Was not able to connect to the %s database. Err: %v", dbConfig.Type, err)
	}
	if dbConfig.Migrate {
		logger.Infof("Migrate the %s database to version %v.", dbConfig.Type, migrations.Versions())
		migrations.Migrate(ctx, relRepo)
	}
	return repository.NewSqlRepository(relRepo)
}

// newResolver caches resolutions in redis if configured. Without reachable redis, every verification resolves.
func newResolver(ctx context.Context, resolver didregistry.Resolver, cacheConfig config.CacheConfig) didregistry.Resolver {
	if cacheConfig.Addr == "" {
		return resolver
	}
	cache, err := didregistry.NewRedisCache(ctx, cacheConfig)
	if err != nil {
		logger.Warnf("Run without did resolution cache. Err: %v", err)
		return resolver
	}
	if err := client.RegisterCheck("redis", cache, true); err != nil {
		logger.Warnf("Was not able to register the redis health check. Err: %v", err)
	}
	return didregistry.NewCachingResolver(resolver, cache, cacheConfig.TTL)
}
