// Package main API Server 入口
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"workio/internal/apiserver/server"
	"workio/internal/config"
	"workio/internal/shared/cache"
	redisCache "workio/internal/shared/cache/redis"
	"workio/internal/shared/media"
	"workio/internal/shared/storage/mongostore"
)

func main() {
	// 加载配置（自动加载 .env，根据 APP_ENV 切换数据库）
	cfg := config.Load()

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// 初始化 MongoDB（持久化业务数据）
	store, err := mongostore.NewStore(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer store.Close()
	log.Println("Connected to MongoDB")

	// 初始化 Redis（职位列表缓存）
	// Redis 不可用时降级为无缓存，不阻塞启动
	var listCache cache.JobListCache
	if rc, err := redisCache.NewStoreFromURL(cfg.RedisURL); err != nil {
		log.Printf("Redis unavailable, job list cache disabled: %v", err)
	} else {
		defer rc.Close()
		listCache = rc
		log.Println("Connected to Redis")
	}

	// 初始化对象存储（头像、简历）
	mediaClient, err := media.NewClient(cfg.Media)
	if err != nil {
		log.Fatalf("Failed to create media client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := mediaClient.EnsureBucket(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to ensure media bucket: %v", err)
	}
	cancel()
	log.Println("Connected to object storage")

	h := server.NewHandler(store, mediaClient, listCache, cfg.Auth, cfg.Application)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
