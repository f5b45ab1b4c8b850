package configuration

import (
	"context"
	"fmt"

	"github.com/dhairya9370/wispr-backend/internal/db"
	"github.com/dhairya9370/wispr-backend/internal/engine"
	"github.com/dhairya9370/wispr-backend/internal/handler"
	"github.com/dhairya9370/wispr-backend/internal/hub"
	"github.com/dhairya9370/wispr-backend/internal/model"
	"github.com/dhairya9370/wispr-backend/internal/presence"
	"github.com/dhairya9370/wispr-backend/internal/receipt"
	"github.com/dhairya9370/wispr-backend/internal/repo"
	"github.com/dhairya9370/wispr-backend/internal/router"
	"github.com/dhairya9370/wispr-backend/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	UserHandler    handler.UserHandler
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	Hub            *hub.Hub
	Engine         *engine.Engine
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

// BuildContainer loads the config at configPath and wires every component.
func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := NewLogger(config.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	store, con, err := openGateway(config, logger)
	if err != nil {
		return nil, err
	}

	c := Wire(*config, store, logger)
	c.mongoClient = con
	return c, nil
}

// Wire assembles the components around an already opened gateway.
func Wire(config Config, store repo.Gateway, logger *zap.Logger) *Container {
	registry := presence.NewRegistry(store, logger)
	h := hub.NewHub(config.Server.AllowedOrigins, logger)
	rt := router.New(h, registry, logger)
	eng := engine.New(store, registry, receipt.NewTracker(store, logger), rt, logger,
		engine.WithBackupStep(config.Engine.BackupProgressStep))
	h.SetDispatcher(eng)

	return &Container{
		UserHandler:    handler.NewUserHandler(service.NewUserService(store, registry)),
		ChatHandler:    handler.NewChatHandler(service.NewChatService(store, logger)),
		MonitorHandler: handler.NewMonitorHandler(hub.NewMonitorService(h, registry)),
		Hub:            h,
		Engine:         eng,
		Config:         config,
		Logger:         logger,
	}
}

func openGateway(config *Config, logger *zap.Logger) (repo.Gateway, *mongo.Database, error) {
	if config.Storage.Driver == DriverMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return repo.NewMemoryGateway(), nil, nil
	}

	mc := config.ChatDatabase
	con, err := db.OpenConnection(mc.Uri, mc.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open mongo: %w", err)
	}

	store := repo.NewMongoGateway(
		repo.NewUserRepository(db.NewRepository[model.User](con, mc.UsersCollection), logger),
		repo.NewChatRepository(db.NewRepository[model.Chat](con, mc.ChatsCollection), logger),
		repo.NewMessageRepository(db.NewRepository[model.Message](con, mc.MessagesCollection), logger),
	)
	logger.Info("connected to mongo", zap.String("database", mc.Database))
	return store, con, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close(ctx context.Context) error {
	// Stop the hub first so every disconnect is handled while storage is up
	if c.Hub != nil {
		if err := c.Hub.Stop(ctx); err != nil {
			c.Logger.Warn("hub did not drain in time", zap.Error(err))
		}
	}

	if c.mongoClient != nil {
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
	return nil
}
