package api_config

import (
	"time"

	"github.com/soloviev-dev/contactio/internal/mailer"
	"github.com/soloviev-dev/contactio/internal/obs"
	pg "github.com/soloviev-dev/contactio/internal/repository/postgres"
	rds "github.com/soloviev-dev/contactio/internal/repository/redis"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
	BaseURL string `mapstructure:"base_url"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	OpsAddr         string        `mapstructure:"ops_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Auth struct {
	Secret      string        `mapstructure:"secret"`
	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	ConfirmTTL  time.Duration `mapstructure:"confirm_ttl"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
	MailTimeout time.Duration `mapstructure:"mail_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	App    App           `mapstructure:"app"`
	Server Server        `mapstructure:"server"`
	DB     pg.Config     `mapstructure:"db"`
	Redis  rds.Config    `mapstructure:"redis"`
	SMTP   mailer.Config `mapstructure:"smtp"`
	Auth   Auth          `mapstructure:"auth"`
	OTEL   OTEL          `mapstructure:"otel"`
	Log    Log           `mapstructure:"log"`
}
