package config

import (
	"errors"
	"testing"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
)

func validConfig() Config {
	var c Config
	c.Mode = types.GatewayService
	c.Feed.Driver = types.FeedPostgres
	c.Gateway.Store = types.StorePostgres
	c.Auth.JWTSecret = "secret"
	return c
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid gateway", func(*Config) {}, nil},
		{"memory store", func(c *Config) { c.Gateway.Store = types.StoreMemory }, nil},
		{"relay without secret", func(c *Config) {
			c.Mode = types.RelayService
			c.Auth.JWTSecret = ""
		}, nil},
		{"unknown mode", func(c *Config) { c.Mode = "admin" }, ErrInvalidMode},
		{"unknown feed", func(c *Config) { c.Feed.Driver = "kafka" }, ErrInvalidDriver},
		{"unknown store", func(c *Config) { c.Gateway.Store = "sqlite" }, ErrInvalidDriver},
		{"gateway without secret", func(c *Config) { c.Auth.JWTSecret = "" }, ErrNoJWTSecret},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.modify(&c)

			err := c.Validate()
			if tc.want == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	db := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", Database: "rides"}
	if got := db.GetDSN(); got != "postgres://u:p@db:5432/rides?sslmode=disable" {
		t.Fatalf("database dsn = %q", got)
	}

	mq := RabbitMQConfig{User: "guest", Password: "guest", Host: "mq", Port: "5672"}
	if got := mq.GetDSN(); got != "amqp://guest:guest@mq:5672/" {
		t.Fatalf("rabbitmq dsn = %q", got)
	}
}
