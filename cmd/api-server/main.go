// Package main API Server 入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ir-api/internal/apiserver/server"
	"ir-api/internal/config"
	"ir-api/internal/script"
	"ir-api/internal/script/acquisition"
	"ir-api/internal/script/transform"
	"ir-api/internal/shared/infra"
	"ir-api/internal/shared/storage/repository"
	"ir-api/pkg/logging"
)

func main() {
	configDirFlag := flag.String("config", "", "配置文件目录")
	flag.Parse()
	if *configDirFlag != "" {
		config.SetConfigDir(*configDirFlag)
	}

	// 加载配置（自动加载 .env，根据 APP_ENV 选择配置文件）
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	logger := logging.New(logging.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    cfg.Log.Output,
		Component: "api",
	})

	ctx := context.Background()
	infrastructure, err := infra.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	defer infrastructure.Close()

	metrics := server.NewMetrics("ir_api", prometheus.DefaultRegisterer)
	infrastructure.Store.SetObserver(metrics)

	acquirer := acquisition.New(cfg.Scripts, infrastructure.Scripts, infrastructure.Revisions)
	acquirer.SetRecorder(metrics)

	reductions := repository.NewReductionRepo(infrastructure.Store)
	h, err := server.NewHandler(server.Deps{
		Runs:       repository.NewRunRepo(infrastructure.Store),
		Reductions: reductions,
		Scripts:    script.NewService(acquirer, reductions, transform.NewRegistry()),
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to create handler: %v", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIServer.Port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.APIServer.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIServer.Port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done

	// 等待未完成的脚本写回
	acquirer.Wait()
	fmt.Println("Server stopped")
}
