package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	DSN         string            `yaml:"dsn" env:"DSN" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	Auth        AuthConfig        `yaml:"auth"`
	Upload      UploadConfig      `yaml:"upload"`
	Transcode   TranscodeConfig   `yaml:"transcode"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	S3          S3Config          `yaml:"s3"`
	Cache       CacheConfig       `yaml:"cache"`
	Redis       RedisConf         `yaml:"redis"`
}

type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HTTP_HOST"`
	Port           string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env-default:"30s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env-default:"2m"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"2m"`
}

type AuthConfig struct {
	Secret     string `yaml:"secret" env:"AUTH_SECRET" env-required:"true"`
	SessionKey string `yaml:"session_key" env:"SESSION_KEY" env-default:"frames-session"`
}

type UploadConfig struct {
	MaxFiles     int      `yaml:"max_files" env-default:"36"`
	MaxFileSize  int64    `yaml:"max_file_size" env-default:"10485760"`
	AcceptedType []string `yaml:"accepted_types" env-default:"image/jpeg,image/jpg,image/png,image/webp"`
	Workers      int      `yaml:"workers" env-default:"4"`
}

type TranscodeConfig struct {
	MaxDimension  int   `yaml:"max_dimension" env-default:"1200"`
	MaxPixels     int   `yaml:"max_pixels" env-default:"64000000"` // <= 0 без ограничения
	MaxBytes      int64 `yaml:"max_bytes" env-default:"1048576"`   // <= 0 без ограничения
	FirstQuality  int   `yaml:"first_quality" env-default:"80"`
	SecondQuality int   `yaml:"second_quality" env-default:"60"`
	ThumbSize     uint  `yaml:"thumb_size" env-default:"400"`
	ThumbQuality  int   `yaml:"thumb_quality" env-default:"75"`
}

type FileStorageConfig struct {
	Driver  string `yaml:"driver" env:"FILE_STORAGE_DRIVER" env-default:"local"`
	BaseDir string `yaml:"base_dir" env-default:"./uploads"`
	BaseURL string `yaml:"base_url" env-default:"/uploads"`
}

type S3Config struct {
	Region    string `yaml:"region" env:"S3_REGION"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	BaseURL   string `yaml:"base_url" env:"S3_BASE_URL"`
}

type CacheConfig struct {
	Driver string        `yaml:"driver" env:"CACHE_DRIVER" env-default:"memory"`
	TTL    time.Duration `yaml:"ttl" env-default:"5m"`
}

type RedisConf struct {
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redispassword" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"`
	DialTimeout   time.Duration `yaml:"dial_timeout" env-default:"5s"`
	ReadTimeout   time.Duration `yaml:"read_timeout" env-default:"3s"`
	WriteTimeout  time.Duration `yaml:"write_timeout" env-default:"3s"`
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

// BodyLimit максимальный размер тела запроса на создание альбома.
func (c *Config) BodyLimit() int64 {
	return int64(c.Upload.MaxFiles)*c.Upload.MaxFileSize + 1<<20
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
