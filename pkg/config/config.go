package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config groups the settings of the backend server and the storefront client.
// Values come from environment variables, optionally seeded by a .env or config file.
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	RabbitMQ RabbitMQConfig
	Client   ClientConfig
	Supabase SupabaseConfig
}

// AppConfig holds general server settings.
type AppConfig struct {
	Env      string // development, production
	LogLevel string
	Port     string // fiber listen address, e.g. ":5000"
}

// DBConfig selects and configures the backend store.
type DBConfig struct {
	Driver        string // memory, sqlite, postgres, mongo
	DSN           string // gorm DSN for sqlite/postgres
	MongoURI      string
	MongoDatabase string
}

// JWTConfig configures the session tokens issued by the local identity service.
// Supabase projects sign their access tokens with the same HS256 scheme, so
// setting Secret to the project's JWT secret lets the backend accept both.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// RabbitMQConfig configures order event publishing. An empty URL disables it.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// ClientConfig configures the storefront CLI.
type ClientConfig struct {
	APIURL    string
	StateFile string
	RedisURL  string // when set, client state is kept in Redis instead of StateFile
	Provider  string // backend, supabase
}

// SupabaseConfig points the supabase identity provider at a project.
type SupabaseConfig struct {
	URL     string
	AnonKey string
}

// Load reads configuration from the environment. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return FromViper(v), nil
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			LogLevel: v.GetString("LOG_LEVEL"),
			Port:     v.GetString("APP_PORT"),
		},
		DB: DBConfig{
			Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:           v.GetString("DATABASE_DSN"),
			MongoURI:      v.GetString("MONGO_URI"),
			MongoDatabase: v.GetString("MONGO_DATABASE"),
		},
		JWT: JWTConfig{
			Secret:          v.GetString("JWT_SECRET"),
			ExpirationHours: v.GetInt("JWT_EXPIRATION_HOURS"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("RABBITMQ_URL"),
			Queue: v.GetString("RABBITMQ_QUEUE"),
		},
		Client: ClientConfig{
			APIURL:    strings.TrimRight(v.GetString("FARMVERSE_API_URL"), "/"),
			StateFile: v.GetString("FARMVERSE_STATE_FILE"),
			RedisURL:  v.GetString("FARMVERSE_REDIS_URL"),
			Provider:  strings.ToLower(v.GetString("FARMVERSE_AUTH_PROVIDER")),
		},
		Supabase: SupabaseConfig{
			URL:     strings.TrimRight(v.GetString("SUPABASE_URL"), "/"),
			AnonKey: v.GetString("SUPABASE_ANON_KEY"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_PORT", ":5000")
	v.SetDefault("DB_DRIVER", "memory")
	v.SetDefault("DATABASE_DSN", "farmverse.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "farmverse")
	v.SetDefault("JWT_SECRET", "farmverse-dev-secret")
	v.SetDefault("JWT_EXPIRATION_HOURS", 24)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_QUEUE", "order_queue")
	v.SetDefault("FARMVERSE_API_URL", "http://localhost:5000")
	v.SetDefault("FARMVERSE_STATE_FILE", ".farmverse/state.json")
	v.SetDefault("FARMVERSE_REDIS_URL", "")
	v.SetDefault("FARMVERSE_AUTH_PROVIDER", "backend")
}

// Defaults returns a viper instance with every default applied and no environment binding.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}
