// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（JWT 密钥、对象存储凭据）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"workio/internal/apiserver/application"
	"workio/internal/apiserver/auth"
	"workio/internal/shared/media"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
// 凭据不存储在 YAML 中，只从 .env / 环境变量读取
type YAMLConfig struct {
	Server      ServerConfig       `yaml:"server"`
	Mongo       MongoConfig        `yaml:"mongo"`
	Redis       RedisConfig        `yaml:"redis"`
	Media       media.Config       `yaml:"media"`
	Auth        AuthYAML           `yaml:"auth"`
	Application application.Config `yaml:"application"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type MongoConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	DB   int    `yaml:"db"`
}

// AuthYAML 认证配置的 YAML 形式（时长用字符串表达，如 "168h"）
type AuthYAML struct {
	SessionTTL   string `yaml:"session_ttl"`
	CookieSecure *bool  `yaml:"cookie_secure"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env         Environment
	MongoURI    string
	MongoDBName string
	RedisURL    string
	APIPort     string
	Media       media.Config
	Auth        auth.Config
	Application application.Config
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 构建最终配置
func Load() *Config {
	// 加载 .env
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	// 解析环境
	env := parseEnv(getEnv("APP_ENV", "dev"))

	// 加载 YAML 配置
	yamlCfg := loadYAMLConfig(env)

	// 认证配置：密钥只从环境变量读取
	authCfg := auth.DefaultConfig()
	authCfg.JWTSecret = os.Getenv("JWT_SECRET")
	if ttl, err := time.ParseDuration(yamlCfg.Auth.SessionTTL); err == nil && ttl > 0 {
		authCfg.SessionTTL = ttl
	}
	if yamlCfg.Auth.CookieSecure != nil {
		authCfg.CookieSecure = *yamlCfg.Auth.CookieSecure
	}

	// 对象存储凭据
	yamlCfg.Media.AccessKey = os.Getenv("MINIO_ROOT_USER")
	yamlCfg.Media.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	cfg := &Config{
		Env:         env,
		MongoURI:    getEnv("MONGO_URI", buildMongoURI(yamlCfg.Mongo)),
		MongoDBName: yamlCfg.Mongo.Name,
		RedisURL:    getEnv("REDIS_URL", buildRedisURL(yamlCfg.Redis)),
		APIPort:     getEnv("API_PORT", yamlCfg.Server.Port),
		Media:       yamlCfg.Media,
		Auth:        authCfg,
		Application: yamlCfg.Application,
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	// 1. 初始化默认值
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "8080"},
		Mongo:  MongoConfig{Host: "localhost", Port: 27017, Name: "workio"},
		Redis:  RedisConfig{Host: "localhost", Port: 6379, DB: 0},
		Media:  media.Config{Endpoint: "localhost:9000", Bucket: "workio"},
	}
	if env == EnvTest {
		cfg.Mongo.Name = "workio_test"
	}

	// 2. 加载 common.yaml（公共配置）
	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	// 3. 加载 {env}.yaml（环境特定配置，覆盖公共配置）
	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// buildMongoURI 构建 MongoDB 连接字符串
func buildMongoURI(m MongoConfig) string {
	return fmt.Sprintf("mongodb://%s:%d", m.Host, m.Port)
}

// buildRedisURL 构建 Redis 连接字符串
func buildRedisURL(r RedisConfig) string {
	return fmt.Sprintf("redis://%s:%d/%d", r.Host, r.Port, r.DB)
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏凭据）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, Redis: %s, Media: %s}",
		c.Env, maskPassword(c.MongoURI), c.MongoDBName, maskPassword(c.RedisURL), c.Media.Endpoint)
}

// maskPassword 隐藏连接串里的密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}
