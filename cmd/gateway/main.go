package main

import (
	"github.com/gin-gonic/gin"

	"github.com/marc0cl/domu-backend-sub001/global"
	"github.com/marc0cl/domu-backend-sub001/logger"
	"github.com/marc0cl/domu-backend-sub001/service/chat"
	"github.com/marc0cl/domu-backend-sub001/service/natsx"
	"github.com/marc0cl/domu-backend-sub001/service/storage"
	"github.com/marc0cl/domu-backend-sub001/tools/security"
)

func main() {
	cfg := global.Load()

	db, err := storage.Open(cfg.DBDSN)
	if err != nil {
		logger.Errorf("open database: %v", err)
		return
	}
	store := storage.NewStore(db)
	if err := store.AutoMigrate(); err != nil {
		logger.Errorf("migrate chat tables: %v", err)
		return
	}

	var mirror chat.PresenceMirror
	if cfg.RedisAddr != "" {
		rdb, err := storage.OpenRedis(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			logger.Errorf("connect redis: %v", err)
			return
		}
		mirror = storage.NewPresenceMirror(rdb)
	}

	var events chat.EventPublisher
	if len(cfg.NatsServers) > 0 {
		producer, err := natsx.Connect(natsx.Config{Servers: cfg.NatsServers, Name: cfg.NatsName})
		if err != nil {
			logger.Errorf("connect nats: %v", err)
			return
		}
		defer producer.Close()
		events = producer
	}

	verifier := security.NewVerifier(security.DefaultOptions([]byte(cfg.JWTSecret)))
	reg := chat.NewRegistry()
	router := chat.NewRouter(reg, store, events)
	presence := chat.NewPresenceBroadcaster(reg, mirror, events)

	server := chat.NewServer(verifier, reg, router, presence, chat.ClientConfig{
		SendQueueSize: cfg.SendQueueSize,
		PingInterval:  cfg.PingInterval,
		WriteTimeout:  cfg.WriteTimeout,
		ReadTimeout:   cfg.ReadTimeout,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	server.Routes(r)

	logger.Infof("[gateway] listening on %s", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		logger.Errorf("http server failed: %v", err)
	}
}
