// Package config 统一配置管理
//
// 配置加载优先级（高→低）：
//  1. 环境变量（通过 .env 文件或 shell/systemd 注入）
//  2. YAML 配置文件（{env}.yaml，如 dev.yaml、test.yaml、prod.yaml）
//  3. 代码硬编码默认值
//
// 凭据单一数据源：
//
//	密码/密钥只存在 .env 文件或环境变量中（YAML 中不存储任何密码）。
//
// 配置路径确定策略：
//  1. --config 命令行参数（显式路径）
//  2. CONFIG_DIR 环境变量
//  3. 按 APP_ENV 选择默认路径：
//     - prod → /etc/ir-api/
//     - dev/test → ./configs/
package config

import "time"

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig 统一 YAML 配置文件结构
type YAMLConfig struct {
	APIServer APIServerConfig `yaml:"api_server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Etcd      EtcdConfig      `yaml:"etcd"`
	MinIO     MinIOConfig     `yaml:"minio"`
	S3        S3Config        `yaml:"s3"`
	Scripts   ScriptsConfig   `yaml:"scripts"`
	Log       LogConfig       `yaml:"log"`
}

// APIServerConfig API Server 配置
type APIServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "postgres" 或 "sqlite"（默认 postgres）
	Path     string `yaml:"path"`   // SQLite 文件路径
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"` // 只从 DB_PASSWORD 环境变量读取
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig Redis 配置（revision_cache=redis 时使用）
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Password string `yaml:"-"`   // 只从 REDIS_PASSWORD 环境变量读取
	URL      string `yaml:"url"` // 直接指定 URL，优先于 host/port/db
	Prefix   string `yaml:"prefix"`
}

// EtcdConfig etcd 配置（revision_cache=etcd 时使用）
type EtcdConfig struct {
	Endpoints   []string      `yaml:"endpoints"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// MinIOConfig MinIO 对象存储配置（scripts.store=minio 时使用）
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"` // 例如 localhost:9000
	AccessKey string `yaml:"-"`        // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"`        // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// S3Config S3 配置（scripts.store=s3 时使用）
//
// 凭据走 AWS 默认凭据链（AWS_ACCESS_KEY_ID 等）。
type S3Config struct {
	Region       string `yaml:"region"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Endpoint     string `yaml:"endpoint"` // 兼容 S3 的自定义端点，可为空
	UsePathStyle bool   `yaml:"use_path_style"`
}

// 脚本本地存储后端
const (
	ScriptStoreFS    = "fs"
	ScriptStoreMinIO = "minio"
	ScriptStoreS3    = "s3"
)

// 最新版本缓存后端
const (
	RevisionCacheMemory = "memory"
	RevisionCacheRedis  = "redis"
	RevisionCacheEtcd   = "etcd"
)

// ScriptsConfig 脚本获取配置
type ScriptsConfig struct {
	Store         string        `yaml:"store"`          // fs / minio / s3
	Dir           string        `yaml:"dir"`            // fs 存储目录
	RawBaseURL    string        `yaml:"raw_base_url"`   // 脚本仓库 raw 文件根地址
	Branch        string        `yaml:"branch"`         // 最新脚本所在分支
	CommitURL     string        `yaml:"commit_url"`     // 查询最新 commit 的地址
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`  // 远程请求超时
	RevisionCache string        `yaml:"revision_cache"` // memory / redis / etcd
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json 或 text
	Output string `yaml:"output"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env            Environment
	DatabaseDriver string // "postgres" 或 "sqlite"
	DatabaseURL    string
	RedisURL       string
	RedisPrefix    string
	APIPort        string
	APIServer      APIServerConfig
	Etcd           EtcdConfig
	MinIO          MinIOConfig
	S3             S3Config
	Scripts        ScriptsConfig
	Log            LogConfig
	ConfigFilePath string // 实际加载的配置文件路径
}

// yamlConfigInternal 内部包装，记录配置文件来源（不参与 YAML 序列化）
type yamlConfigInternal struct {
	YAMLConfig `yaml:",inline"`
	loadedFrom string
}
