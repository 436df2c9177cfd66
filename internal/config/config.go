package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultYAMLConfig 代码默认值
func defaultYAMLConfig() YAMLConfig {
	return YAMLConfig{
		APIServer: APIServerConfig{Port: "8000", ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "interactive-reduction",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		Etcd:  EtcdConfig{Endpoints: []string{"localhost:2379"}, Prefix: "/ir-api", DialTimeout: 5 * time.Second},
		MinIO: MinIOConfig{Endpoint: "localhost:9000", Bucket: "ir-api"},
		S3:    S3Config{Region: "eu-west-2", Prefix: "scripts/"},
		Scripts: ScriptsConfig{
			Store:         ScriptStoreFS,
			Dir:           "ir_api/local_scripts",
			RawBaseURL:    "https://raw.githubusercontent.com/interactivereduction/autoreduction-scripts",
			Branch:        "main",
			CommitURL:     "https://api.github.com/repos/interactivereduction/autoreduction-scripts/commits/HEAD",
			FetchTimeout:  30 * time.Second,
			RevisionCache: RevisionCacheMemory,
		},
		Log: LogConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load 加载配置
//
//  1. 加载 .env.{env}（敏感信息）
//  2. 加载 {env}.yaml
//  3. 环境变量覆盖
func Load() *Config {
	env := parseEnv(getEnv("APP_ENV", "dev"))
	loadEnvFiles(env)

	yamlCfg := loadYAMLConfig(env)
	cfg := resolve(env, yamlCfg)
	if cfg.ConfigFilePath != "" {
		log.Printf("[Config] Loaded %s", cfg.ConfigFilePath)
	}
	return cfg
}

// resolve 合并 YAML 与环境变量，生成最终配置
func resolve(env Environment, y *yamlConfigInternal) *Config {
	db := y.Database
	db.Password = firstEnv("DB_PASSWORD", "POSTGRES_PASSWORD")
	if db.Password == "" {
		db.Password = "password"
	}
	if v := os.Getenv("DB_USERNAME"); v != "" {
		db.User = v
	}
	if v := firstEnv("DB_HOST", "DB_IP"); v != "" {
		db.Host = v
	}

	databaseURL := getEnv("DATABASE_URL", "")
	driver := detectDatabaseDriver(db.Driver, databaseURL)
	db.Driver = driver
	if databaseURL == "" {
		databaseURL = buildDatabaseURL(db, db.Password)
	}

	redisCfg := y.Redis
	redisCfg.Password = os.Getenv("REDIS_PASSWORD")

	minioCfg := y.MinIO
	minioCfg.AccessKey = os.Getenv("MINIO_ROOT_USER")
	minioCfg.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	s3Cfg := y.S3
	if v := os.Getenv("S3_BUCKET"); v != "" {
		s3Cfg.Bucket = v
	}
	if v := firstEnv("AWS_REGION", "AWS_DEFAULT_REGION"); v != "" {
		s3Cfg.Region = v
	}

	scripts := y.Scripts
	if v := os.Getenv("SCRIPTS_DIR"); v != "" {
		scripts.Dir = v
	}
	if v := os.Getenv("SCRIPTS_STORE"); v != "" {
		scripts.Store = strings.ToLower(v)
	}
	if v := os.Getenv("REVISION_CACHE"); v != "" {
		scripts.RevisionCache = strings.ToLower(v)
	}

	logCfg := y.Log
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		logCfg.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		logCfg.Format = v
	}

	etcdCfg := y.Etcd
	if v := os.Getenv("ETCD_ENDPOINTS"); v != "" {
		etcdCfg.Endpoints = strings.Split(v, ",")
	}

	apiServer := y.APIServer
	apiServer.Port = firstNonEmpty(firstEnv("API_PORT", "PORT"), apiServer.Port)
	if v := os.Getenv("SHUTDOWN_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			apiServer.ShutdownTimeout = time.Duration(n) * time.Second
		}
	}

	return &Config{
		Env:            env,
		DatabaseDriver: driver,
		DatabaseURL:    databaseURL,
		RedisURL:       getEnv("REDIS_URL", buildRedisURL(redisCfg)),
		RedisPrefix:    redisCfg.Prefix,
		APIPort:        apiServer.Port,
		APIServer:      apiServer,
		Etcd:           etcdCfg,
		MinIO:          minioCfg,
		S3:             s3Cfg,
		Scripts:        scripts,
		Log:            logCfg,
		ConfigFilePath: y.loadedFrom,
	}
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → {env}.yaml
func loadYAMLConfig(env Environment) *yamlConfigInternal {
	cfg := &yamlConfigInternal{YAMLConfig: defaultYAMLConfig()}

	path := findConfigFile(env)
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[Config] Failed to read %s: %v", path, err)
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg.YAMLConfig); err != nil {
		log.Printf("[Config] Failed to parse %s: %v", path, err)
		return cfg
	}
	cfg.loadedFrom = path
	return cfg
}

// Validate 检查配置组合是否可用
func (c *Config) Validate() error {
	switch c.Scripts.Store {
	case ScriptStoreFS:
		if c.Scripts.Dir == "" {
			return fmt.Errorf("scripts.dir is required for fs store")
		}
	case ScriptStoreMinIO:
		if c.MinIO.Endpoint == "" {
			return fmt.Errorf("minio.endpoint is required for minio store")
		}
	case ScriptStoreS3:
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for s3 store")
		}
	default:
		return fmt.Errorf("unknown scripts.store %q", c.Scripts.Store)
	}

	switch c.Scripts.RevisionCache {
	case RevisionCacheMemory, RevisionCacheRedis:
	case RevisionCacheEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("etcd.endpoints is required for etcd revision cache")
		}
	default:
		return fmt.Errorf("unknown scripts.revision_cache %q", c.Scripts.RevisionCache)
	}

	if c.Scripts.FetchTimeout <= 0 {
		return fmt.Errorf("scripts.fetch_timeout must be positive")
	}
	return nil
}
