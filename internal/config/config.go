// Package config loads the service configuration from an optional YAML file
// and MAILPACE_* environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/mailpace/pkg/dispatch"
	"github.com/dmitrymomot/mailpace/pkg/logger"
	"github.com/dmitrymomot/mailpace/pkg/mailer/ses"
	"github.com/dmitrymomot/mailpace/pkg/mailer/smtp"
	"github.com/dmitrymomot/mailpace/pkg/quota"
	"github.com/dmitrymomot/mailpace/pkg/session"
)

// ErrInvalid is joined with every validation failure.
var ErrInvalid = errors.New("config: invalid configuration")

const (
	ProviderSMTP   = "smtp"
	ProviderResend = "resend"
	ProviderSES    = "ses"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all configuration for the service.
// Defaults live in envDefault tags; a YAML file may replace them and
// environment variables win over both.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Quota       QuotaConfig       `yaml:"quota"`
	Pacing      PacingConfig      `yaml:"pacing"`
	Dispatch    DispatchConfig    `yaml:"dispatch"`
	Lockout     LockoutConfig     `yaml:"lockout"`
	Channel     ChannelConfig     `yaml:"channel"`
	Unsubscribe UnsubscribeConfig `yaml:"unsubscribe"`
	Sessions    SessionsConfig    `yaml:"sessions"`
	Redis       RedisConfig       `yaml:"redis"`
	Log         logger.Config     `yaml:"log" envPrefix:"MAILPACE_"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"MAILPACE_ADDR" envDefault:":3000"`
	// Port, when set, replaces Addr with ":<port>" (platform convention).
	Port        string        `yaml:"-" env:"PORT"`
	ReadTimeout time.Duration `yaml:"read_timeout" env:"MAILPACE_READ_TIMEOUT" envDefault:"15s"`
	// WriteTimeout of 0 leaves synchronous campaigns unbounded; a paced
	// campaign can take tens of minutes.
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"MAILPACE_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"MAILPACE_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// AuthConfig holds the single operator login.
type AuthConfig struct {
	Username     string        `yaml:"username" env:"MAILPACE_AUTH_USERNAME"`
	Password     string        `yaml:"password" env:"MAILPACE_AUTH_PASSWORD"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"MAILPACE_SESSION_TTL" envDefault:"1h"`
	SecureCookie bool          `yaml:"secure_cookie" env:"MAILPACE_SECURE_COOKIE"`
	// LoginRate is the sustained login attempts per second per client IP.
	LoginRate  float64 `yaml:"login_rate" env:"MAILPACE_LOGIN_RATE" envDefault:"0.5"`
	LoginBurst int     `yaml:"login_burst" env:"MAILPACE_LOGIN_BURST" envDefault:"5"`
}

// QuotaConfig selects a preset and optionally overrides its fields.
type QuotaConfig struct {
	Preset         string                  `yaml:"preset" env:"MAILPACE_QUOTA_PRESET" envDefault:"hourly"`
	Window         string                  `yaml:"window" env:"MAILPACE_QUOTA_WINDOW"`
	Timezone       string                  `yaml:"timezone" env:"MAILPACE_QUOTA_TIMEZONE"`
	WindowDuration Override[time.Duration] `yaml:"window_duration" env:"MAILPACE_QUOTA_WINDOW_DURATION"`
	Cap            Override[int]           `yaml:"cap" env:"MAILPACE_QUOTA_CAP"`
	MinimumGap     Override[time.Duration] `yaml:"minimum_gap" env:"MAILPACE_QUOTA_MINIMUM_GAP"`
	// MaxRecipients of 0 lifts the preset's per-campaign limit.
	MaxRecipients Override[int] `yaml:"max_recipients" env:"MAILPACE_QUOTA_MAX_RECIPIENTS"`
}

type PacingConfig struct {
	Min time.Duration `yaml:"min" env:"MAILPACE_PACING_MIN" envDefault:"60s"`
	Max time.Duration `yaml:"max" env:"MAILPACE_PACING_MAX" envDefault:"180s"`
}

type DispatchConfig struct {
	Mode    string `yaml:"mode" env:"MAILPACE_DISPATCH_MODE" envDefault:"sync"`
	Workers int    `yaml:"workers" env:"MAILPACE_DISPATCH_WORKERS" envDefault:"4"`
	Footer  string `yaml:"footer" env:"MAILPACE_DISPATCH_FOOTER"`
}

type LockoutConfig struct {
	// ArmAfter schedules a full reset this long after each login. 0 disables.
	ArmAfter time.Duration `yaml:"arm_after" env:"MAILPACE_LOCKOUT_ARM_AFTER" envDefault:"1h"`
	Cooldown time.Duration `yaml:"cooldown" env:"MAILPACE_LOCKOUT_COOLDOWN" envDefault:"2s"`
	// Schedule is an optional cron expression for periodic resets.
	Schedule string `yaml:"schedule" env:"MAILPACE_LOCKOUT_SCHEDULE"`
}

type ChannelConfig struct {
	Provider string     `yaml:"provider" env:"MAILPACE_CHANNEL" envDefault:"smtp"`
	SMTP     SMTPConfig `yaml:"smtp"`
	SES      SESConfig  `yaml:"ses"`
}

type SMTPConfig struct {
	Host               string        `yaml:"host" env:"MAILPACE_SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port               int           `yaml:"port" env:"MAILPACE_SMTP_PORT" envDefault:"465"`
	SSL                bool          `yaml:"ssl" env:"MAILPACE_SMTP_SSL"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify" env:"MAILPACE_SMTP_INSECURE_SKIP_VERIFY"`
	Timeout            time.Duration `yaml:"timeout" env:"MAILPACE_SMTP_TIMEOUT" envDefault:"30s"`
	LocalName          string        `yaml:"local_name" env:"MAILPACE_SMTP_LOCAL_NAME"`
}

type SESConfig struct {
	Region           string `yaml:"region" env:"MAILPACE_SES_REGION" envDefault:"us-east-1"`
	Endpoint         string `yaml:"endpoint" env:"MAILPACE_SES_ENDPOINT"`
	ConfigurationSet string `yaml:"configuration_set" env:"MAILPACE_SES_CONFIGURATION_SET"`
}

type UnsubscribeConfig struct {
	Backend string `yaml:"backend" env:"MAILPACE_UNSUBSCRIBE_BACKEND" envDefault:"memory"`
	// Key is the Redis set holding opted-out addresses. Empty uses the registry default.
	Key string `yaml:"key" env:"MAILPACE_UNSUBSCRIBE_KEY"`
}

type SessionsConfig struct {
	Backend string `yaml:"backend" env:"MAILPACE_SESSIONS_BACKEND" envDefault:"memory"`
	// Key is the Redis key prefix for sessions. Empty uses "mailpace:sessions".
	Key string `yaml:"key" env:"MAILPACE_SESSIONS_KEY"`
}

type RedisConfig struct {
	URL string `yaml:"url" env:"MAILPACE_REDIS_URL"`
}

// Override is a value that replaces the preset's when Set, including zero.
type Override[T any] struct {
	Value T
	Set   bool
}

// Of returns an override holding v.
func Of[T any](v T) Override[T] {
	return Override[T]{Value: v, Set: true}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Override[T]) UnmarshalYAML(node *yaml.Node) error {
	if err := node.Decode(&o.Value); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// UnmarshalText lets environment variables set an override.
func (o *Override[T]) UnmarshalText(text []byte) error {
	var node yaml.Node
	if err := yaml.Unmarshal(text, &node); err != nil {
		return err
	}
	if len(node.Content) == 0 {
		return errors.New("empty value")
	}
	return o.UnmarshalYAML(node.Content[0])
}

func (o Override[T]) apply(dst *T) {
	if o.Set {
		*dst = o.Value
	}
}

// skipDefaults names a default tag no field carries, so a parse pass only
// applies variables that are actually set.
const skipDefaults = "envDefaultSkip"

// Default returns the configuration used when nothing is set.
func Default() *Config {
	cfg := &Config{}
	// Tags are static; the only failure is a malformed envDefault literal.
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(err)
	}
	return cfg
}

// Load reads path when it is non-empty, then applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	return load(path, nil)
}

// load reads variables from environ, or from the process environment when
// environ is nil.
func load(path string, environ map[string]string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{
		Environment:         environ,
		DefaultValueTagName: skipDefaults,
	}); err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	if cfg.Server.Port != "" {
		cfg.Server.Addr = ":" + cfg.Server.Port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		fail("server.addr is required")
	}
	if c.Auth.Username == "" || c.Auth.Password == "" {
		fail("auth.username and auth.password are required")
	}
	if c.Auth.SessionTTL <= 0 {
		fail("auth.session_ttl must be positive")
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		fail("auth.login_rate and auth.login_burst must be positive")
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	if c.Pacing.Min < 0 || c.Pacing.Max < c.Pacing.Min {
		fail("pacing: need 0 <= min <= max, got %s..%s", c.Pacing.Min, c.Pacing.Max)
	}
	if _, err := dispatch.ParseMode(c.Dispatch.Mode); err != nil {
		fail("dispatch.mode %q: must be sync or async", c.Dispatch.Mode)
	}
	if c.Lockout.ArmAfter < 0 || c.Lockout.Cooldown < 0 {
		fail("lockout durations must not be negative")
	}
	switch c.Channel.Provider {
	case ProviderSMTP:
		if c.Channel.SMTP.Host == "" || c.Channel.SMTP.Port <= 0 {
			fail("channel.smtp host and port are required")
		}
	case ProviderResend:
	case ProviderSES:
		if c.Channel.SES.Region == "" {
			fail("channel.ses.region is required")
		}
	default:
		fail("channel.provider %q: must be smtp, resend or ses", c.Channel.Provider)
	}
	for name, b := range map[string]string{"unsubscribe": c.Unsubscribe.Backend, "sessions": c.Sessions.Backend} {
		switch b {
		case BackendMemory:
		case BackendRedis:
			if c.Redis.URL == "" {
				fail("%s.backend redis needs redis.url", name)
			}
		default:
			fail("%s.backend %q: must be memory or redis", name, b)
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalid}, errs...)...)
	}
	return nil
}

// Policy builds the quota policy: the preset first, then any explicit field.
func (c *Config) Policy() (quota.Policy, error) {
	p := quota.HourlyPolicy()
	if c.Quota.Preset != "" {
		var err error
		if p, err = quota.PolicyByName(c.Quota.Preset); err != nil {
			return quota.Policy{}, err
		}
	}
	q := c.Quota
	if q.Window != "" {
		p.Window = quota.WindowKind(strings.ToLower(q.Window))
	}
	q.WindowDuration.apply(&p.WindowDuration)
	q.Cap.apply(&p.Cap)
	q.MinimumGap.apply(&p.MinimumGap)
	q.MaxRecipients.apply(&p.MaxRecipientsPerCampaign)
	if q.Timezone != "" {
		loc, err := time.LoadLocation(q.Timezone)
		if err != nil {
			return quota.Policy{}, errors.Join(quota.ErrInvalidPolicy, err)
		}
		p.Location = loc
	}
	return p, p.Validate()
}

// SMTP converts the channel section for the smtp transport.
func (c *Config) SMTP() smtp.Config {
	s := c.Channel.SMTP
	return smtp.Config{
		Host:               s.Host,
		Port:               s.Port,
		SSL:                s.SSL,
		InsecureSkipVerify: s.InsecureSkipVerify,
		Timeout:            s.Timeout,
		LocalName:          s.LocalName,
	}
}

// SES converts the channel section for the ses transport.
func (c *Config) SES() ses.Config {
	return ses.Config{
		Region:           c.Channel.SES.Region,
		Endpoint:         c.Channel.SES.Endpoint,
		ConfigurationSet: c.Channel.SES.ConfigurationSet,
	}
}

// SessionOptions maps the auth section onto session manager options.
func (c *Config) SessionOptions() []session.Option {
	return []session.Option{
		session.WithTTL(c.Auth.SessionTTL),
		session.WithSecure(c.Auth.SecureCookie),
	}
}
