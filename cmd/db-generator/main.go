// Package main 开发数据库假数据生成器
//
// 清空数据库后写入全部仪器和指定数量的 Reduction。只允许连接本地数据库。
package main

import (
	"context"
	"flag"
	"log"

	"ir-api/internal/config"
	"ir-api/internal/devdata"
	"ir-api/internal/shared/infra"
)

func main() {
	configDirFlag := flag.String("config", "", "配置文件目录")
	count := flag.Int("count", 10000, "生成的 Reduction 数量")
	seed := flag.Int64("seed", 1, "随机种子")
	flag.Parse()
	if *configDirFlag != "" {
		config.SetConfigDir(*configDirFlag)
	}

	cfg := config.Load()
	host := config.DatabaseHost(cfg.DatabaseURL)
	if err := devdata.CheckLocal(host); err != nil {
		log.Fatalf("Refusing to generate data: %v", err)
	}

	store, err := infra.OpenStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := devdata.Reset(ctx, store.DB()); err != nil {
		log.Fatalf("Failed to reset database: %v", err)
	}

	log.Printf("[Generator] Writing %d reductions (seed=%d)", *count, *seed)
	if err := devdata.NewGenerator(store, *seed).Generate(ctx, *count); err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}
	log.Println("[Generator] Done")
}
