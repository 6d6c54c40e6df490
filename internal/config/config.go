package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env          string             `yaml:"env" env-default:"local"`
	TokenSecret  string             `yaml:"token_secret" env:"TOKEN_SECRET" env-required:"true"`
	HTTP         HTTPConfig         `yaml:"http"`
	Storage      StorageConfig      `yaml:"storage"`
	AudioStorage AudioStorageConfig `yaml:"audio_storage"`
	MediaLibrary MediaLibraryConfig `yaml:"media_library"`
	Redis        RedisConf          `yaml:"redis"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"8080"`
}

type StorageConfig struct {
	DataDir         string `yaml:"data_dir" env-default:"./data"`
	CollectionsFile string `yaml:"collections_file" env-default:"collections.json"`
	SettingsFile    string `yaml:"settings_file" env-default:"settings.json"`
}

type AudioStorageConfig struct {
	BaseDir         string        `yaml:"base_dir" env-default:"./data/audio"`
	BaseURL         string        `yaml:"base_url" env-default:"http://localhost:8080/audio"`
	MaxSize         int64         `yaml:"max_size" env-default:"5242880"`
	MaxClipDuration time.Duration `yaml:"max_clip_duration" env-default:"30s"`
}

type MediaLibraryConfig struct {
	BaseURL  string        `yaml:"base_url" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"10s"`
	CacheTTL time.Duration `yaml:"cache_ttl" env-default:"5m"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
