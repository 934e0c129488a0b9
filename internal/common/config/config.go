package config

import "fmt"

// DatabaseConfig PostgreSQL connection settings (DB_* variables).
type DatabaseConfig struct {
	Host     string `envconfig:"HOST" default:"localhost"`
	Port     int    `envconfig:"PORT" default:"5432"`
	User     string `envconfig:"USER" default:"postgres"`
	Password string `envconfig:"PASSWORD" default:"postgres"`
	Database string `envconfig:"NAME" default:"altenheim"`
	SSLMode  string `envconfig:"SSLMODE" default:"disable"`
	MaxConns int    `envconfig:"MAX_CONNS" default:"20"`
	MaxIdle  int    `envconfig:"MAX_IDLE" default:"5"`
	// URL takes precedence over the discrete fields when set.
	URL string `envconfig:"URL"`
}

// RedisConfig Redis settings (REDIS_* variables).
type RedisConfig struct {
	Enabled  bool   `envconfig:"ENABLED" default:"true"`
	Addr     string `envconfig:"ADDR" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0"`
}

// MQTTConfig MQTT settings (MQTT_* variables).
type MQTTConfig struct {
	Broker      string `envconfig:"BROKER" default:"tcp://localhost:1883"`
	ClientID    string `envconfig:"CLIENT_ID" default:"altenheim-avatar"`
	Username    string `envconfig:"USERNAME"`
	Password    string `envconfig:"PASSWORD"`
	QoS         byte   `envconfig:"QOS" default:"1"`
	TopicPrefix string `envconfig:"TOPIC_PREFIX" default:"altenheim"`
}

// GetDSN returns the lib/pq connection string.
func (c *DatabaseConfig) GetDSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
