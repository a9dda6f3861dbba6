package env

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	envconfig "github.com/sethvargo/go-envconfig"
)

type EnvironmentSettings struct {
	HTTPServerPort string `env:"HTTP_SERVER_PORT, default=8080"`

	MongoDBURL  string `env:"MONGO_DB_URL, default=mongodb://localhost:27017"`
	MongoDBName string `env:"MONGO_DB_NAME, default=natours"`

	SecretKey            string        `env:"SECRET_KEY, required"`
	JWTExpiresIn         time.Duration `env:"JWT_EXPIRES_IN, default=2160h"`
	PasswordResetExpires time.Duration `env:"PASSWORD_RESET_EXPIRES_IN, default=10m"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB, default=0"`

	EmailHost     string `env:"EMAIL_HOST"`
	EmailPort     int    `env:"EMAIL_PORT, default=587"`
	EmailUsername string `env:"EMAIL_USERNAME"`
	EmailPassword string `env:"EMAIL_PASSWORD"`
	EmailFrom     string `env:"EMAIL_FROM, default=Natours <hello@natours.io>"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	// PublicURL is the externally reachable base of the API, used in links
	// that leave the server such as password reset emails.
	PublicURL string `env:"PUBLIC_URL, default=http://localhost:8080"`
}

// LoadEnvironment reads an optional .env file from the working directory and
// then resolves settings from the process environment.
func LoadEnvironment(ctx context.Context) (*EnvironmentSettings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*EnvironmentSettings, error) {
	var settings EnvironmentSettings
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &settings,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	return &settings, nil
}
