package config

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultSleepTime      = 60
	DefaultSNMPPort       = 161
	DefaultJSONBinServer  = "https://jsonbin.e-complex.hu"
	DefaultTimezone       = "Europe/Budapest"
	DefaultRequestTimeout = 10
	DefaultLogLevel       = "info"
)

type Config struct {
	DSMHost     string
	DSMUsername string
	DSMPassword string

	SNMPHost     string
	SNMPPort     int
	SNMPUsername string
	SNMPPassword string

	JSONSecret    string
	JSONBinServer string

	SleepTime      int
	RequestTimeout int
	Timezone       string
	Location       *time.Location
	LogLevel       string

	InfluxEnabled     bool
	InfluxURL         string
	InfluxToken       string
	InfluxOrg         string
	InfluxBucket      string
	InfluxMeasurement string
	InfluxHostTag     string

	RedisEnabled  bool
	RedisNetwork  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string

	RabbitMQEnabled  bool
	RabbitMQURL      string
	RabbitMQUsername string
	RabbitMQPassword string
	RabbitMQQueue    string
}

// Load reads the optional dotenv files (".env" when none given) and then the
// process environment. Variables already set in the environment win over the files.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, errors.Wrap(err, "failed to load env file")
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("SLEEP_TIME", DefaultSleepTime)
	v.SetDefault("SNMP_PORT", DefaultSNMPPort)
	v.SetDefault("JSONBIN_SERVER", DefaultJSONBinServer)
	v.SetDefault("TIMEZONE", DefaultTimezone)
	v.SetDefault("REQUEST_TIMEOUT", DefaultRequestTimeout)
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("INFLUX_ENABLED", false)
	v.SetDefault("INFLUX_MEASUREMENT", "temperature")
	v.SetDefault("INFLUX_HOST_TAG", "synology")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_NETWORK", "tcp")
	v.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY", "nas-collector:reading:latest")
	v.SetDefault("RABBITMQ_ENABLED", false)
	v.SetDefault("RABBITMQ_QUEUE", "nas-collector")

	cfg := &Config{
		DSMHost:     v.GetString("DSM_HOST"),
		DSMUsername: v.GetString("DSM_USERNAME"),
		DSMPassword: v.GetString("DSM_PASSWORD"),

		SNMPHost:     v.GetString("SNMP_HOST"),
		SNMPPort:     v.GetInt("SNMP_PORT"),
		SNMPUsername: v.GetString("SNMP_USERNAME"),
		SNMPPassword: v.GetString("SNMP_PASSWORD"),

		JSONSecret:    v.GetString("JSON_SECRET"),
		JSONBinServer: v.GetString("JSONBIN_SERVER"),

		SleepTime:      v.GetInt("SLEEP_TIME"),
		RequestTimeout: v.GetInt("REQUEST_TIMEOUT"),
		Timezone:       v.GetString("TIMEZONE"),
		LogLevel:       v.GetString("LOG_LEVEL"),

		InfluxEnabled:     v.GetBool("INFLUX_ENABLED"),
		InfluxURL:         v.GetString("INFLUX_URL"),
		InfluxToken:       v.GetString("INFLUX_TOKEN"),
		InfluxOrg:         v.GetString("INFLUX_ORG"),
		InfluxBucket:      v.GetString("INFLUX_BUCKET"),
		InfluxMeasurement: v.GetString("INFLUX_MEASUREMENT"),
		InfluxHostTag:     v.GetString("INFLUX_HOST_TAG"),

		RedisEnabled:  v.GetBool("REDIS_ENABLED"),
		RedisNetwork:  v.GetString("REDIS_NETWORK"),
		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		RedisKey:      v.GetString("REDIS_KEY"),

		RabbitMQEnabled:  v.GetBool("RABBITMQ_ENABLED"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQUsername: v.GetString("RABBITMQ_USERNAME"),
		RabbitMQPassword: v.GetString("RABBITMQ_PASSWORD"),
		RabbitMQQueue:    v.GetString("RABBITMQ_QUEUE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SleepTime <= 0 {
		return errors.Errorf("SLEEP_TIME must be a positive integer, got %d", c.SleepTime)
	}
	if c.RequestTimeout <= 0 {
		return errors.Errorf("REQUEST_TIMEOUT must be a positive integer, got %d", c.RequestTimeout)
	}
	required := [][2]string{
		{"DSM_HOST", c.DSMHost},
		{"SNMP_HOST", c.SNMPHost},
		{"JSON_SECRET", c.JSONSecret},
	}
	if c.InfluxEnabled {
		required = append(required,
			[2]string{"INFLUX_URL", c.InfluxURL},
			[2]string{"INFLUX_TOKEN", c.InfluxToken},
			[2]string{"INFLUX_ORG", c.InfluxOrg},
			[2]string{"INFLUX_BUCKET", c.InfluxBucket},
		)
	}
	if c.RabbitMQEnabled {
		required = append(required, [2]string{"RABBITMQ_URL", c.RabbitMQURL})
	}
	for _, kv := range required {
		if kv[1] == "" {
			return errors.Errorf("%s is required", kv[0])
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return errors.Wrapf(err, "invalid TIMEZONE %q", c.Timezone)
	}
	c.Location = loc
	return nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.SleepTime) * time.Second
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RabbitMQDSN assembles the broker url the same way the env file describes it:
// credentials are optional and the scheme defaults to amqp.
func (c *Config) RabbitMQDSN() string {
	scheme := "amqp://"
	url := c.RabbitMQURL
	if rest, ok := strings.CutPrefix(url, "amqps://"); ok {
		scheme, url = "amqps://", rest
	} else if rest, ok := strings.CutPrefix(url, "amqp://"); ok {
		url = rest
	}
	if c.RabbitMQUsername == "" {
		return scheme + url
	}
	return scheme + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + url
}
