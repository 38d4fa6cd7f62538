package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "live-bidding/internal/biddingService"
	"live-bidding/internal/broadcast"
	model "live-bidding/internal/models"
	"live-bidding/internal/reconciler"
	"live-bidding/internal/registry"
	"live-bidding/internal/relay"
	"live-bidding/internal/repository"
	"live-bidding/internal/server"
	"live-bidding/internal/session"
	"live-bidding/internal/statestore"
	"live-bidding/internal/transport"
	"live-bidding/services/bidding/handler"
	"live-bidding/utils"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := ParseConfig(os.Args[1:])
	if err != nil {
		utils.Fatal("failed to parse config", map[string]any{"error": err.Error()})
	}
	if err := cfg.Validate(); err != nil {
		utils.Fatal("invalid config", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	windows, err := repository.NewWindowCache(repo, cfg.WindowCacheSize, cfg.WindowCacheTTL)
	if err != nil {
		utils.Fatal("failed to create window cache", map[string]any{"error": err.Error()})
	}

	subs := registry.New()
	hub := transport.NewHub()

	// the coordinator needs the session manager, which needs the store
	var coordinator *broadcast.Coordinator
	storeOpts := []statestore.Option{
		statestore.WithCommitHook(func(state model.ItemBidState, origin statestore.Origin) {
			coordinator.OnCommit(state, origin)
		}),
		statestore.WithPersistPolicy(statestore.PersistPolicy{
			MaxAttempts:    cfg.PersistMaxAttempts,
			InitialBackoff: cfg.PersistInitialBackoff,
			MaxBackoff:     cfg.PersistMaxBackoff,
			Workers:        cfg.PersistWorkers,
		}),
	}

	var (
		redisClient *redis.Client
		publisher   *relay.Publisher
	)
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			utils.Fatal("failed to reach redis", map[string]any{"addr": cfg.Redis.Addr, "error": err.Error()})
		}
		publisher, err = relay.NewPublisher(redisClient, cfg.Redis.Stream, cfg.InstanceID)
		if err != nil {
			utils.Fatal("failed to create relay publisher", map[string]any{"error": err.Error()})
		}
		storeOpts = append(storeOpts, statestore.WithCommitHook(publisher.OnCommit))
	}

	store := statestore.New(repo, storeOpts...)

	validator := bidding.Validator{MinRebidIncrement: cfg.MinRebidIncrement}
	biddingSvc := bidding.NewBiddingService(store, windows, validator, cfg.CASMaxRetries)

	sessions := session.NewManager(biddingSvc, subs, hub, session.WithDisconnectHook(hub.Drop))
	coordinator = broadcast.NewCoordinator(subs, hub,
		broadcast.WithShards(cfg.BroadcastShards),
		broadcast.WithDisconnectFunc(sessions.DisconnectOnError))

	coordinator.Start()
	store.Start()

	var subscriber *relay.Subscriber
	if redisClient != nil {
		publisher.Start()
		subscriber, err = relay.NewSubscriber(redisClient, cfg.Redis.Stream, cfg.InstanceID, store)
		if err != nil {
			utils.Fatal("failed to create relay subscriber", map[string]any{"error": err.Error()})
		}
		subscriber.Start()
	}

	recon, err := reconciler.New(store, windows, cfg.ReconcileInterval)
	if err != nil {
		utils.Fatal("failed to create reconciler", map[string]any{"error": err.Error()})
	}
	if err := recon.Start(); err != nil {
		utils.Fatal("failed to start reconciler", map[string]any{"error": err.Error()})
	}

	live := handler.NewLiveHandler(hub, sessions, transport.WSConfig{
		SendBuffer:  cfg.WSSendBuffer,
		IdleTimeout: cfg.WSIdleTimeout,
	})
	router := server.SetupRouter(biddingSvc, live, cfg.AllowedOrigins...)

	srv := &http.Server{
		Addr:              cfg.ServerURL,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		utils.Info("starting live bidding server", map[string]any{"addr": cfg.ServerURL, "instance": cfg.InstanceID})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Fatal("failed to start server", map[string]any{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	utils.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Warn("http shutdown incomplete", map[string]any{"error": err.Error()})
	}

	// connections first so no new bids arrive, then drain the pipelines
	hub.CloseAll()
	if err := recon.Stop(); err != nil {
		utils.Warn("reconciler stop failed", map[string]any{"error": err.Error()})
	}
	if subscriber != nil {
		subscriber.Close()
	}
	store.Close()
	coordinator.Close()
	if publisher != nil {
		publisher.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if dirty := store.DirtyItems(); len(dirty) > 0 {
		utils.Warn("exiting with unpersisted bids", map[string]any{"alert": "durability", "items": dirty})
	}
}

// openRepository connects to MongoDB when configured, otherwise returns an
// in-memory store of record seeded with demo items.
func openRepository(ctx context.Context, cfg Config) (repository.AuctionDB, func()) {
	if cfg.Mongo.URI == "" {
		repo := repository.NewMemoryRepo()
		prepopulateItems(repo)
		utils.Info("using in-memory store of record", map[string]any{"items": 3})
		return repo, func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		utils.Fatal("failed to connect to mongodb", map[string]any{"error": err.Error()})
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		utils.Fatal("failed to ping mongodb", map[string]any{"error": err.Error()})
	}
	products := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	utils.Info("using mongodb store of record", map[string]any{"database": cfg.Mongo.Database, "collection": cfg.Mongo.Collection})

	return repository.NewMongoRepo(products), func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			utils.Warn("mongodb disconnect failed", map[string]any{"error": err.Error()})
		}
	}
}

// prepopulateItems adds sample items to the in-memory repo
func prepopulateItems(repo *repository.MemoryRepo) {
	now := time.Now().UTC()
	items := []model.Item{
		{ItemID: "item1", Title: "title1", StartingPrice: 100, Status: model.ItemStatusActive},
		{ItemID: "item2", Title: "title2", StartingPrice: 200, Status: model.ItemStatusActive, BiddingEnd: now.Add(24 * time.Hour)},
		{ItemID: "item3", Title: "title3", StartingPrice: 150, Status: model.ItemStatusActive, BiddingStart: now.Add(time.Hour)},
	}

	for _, item := range items {
		repo.AddItem(item)
	}
}
