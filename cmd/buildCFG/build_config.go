package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"internhub/internal/mailer"
	"internhub/internal/payment"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

type AuthConfig struct {
	Secret     string
	SessionTTL time.Duration
}

// AdminBootstrap describes the default admin account created at startup.
// All fields must be set for the bootstrap to run; credentials come from
// configuration, never from literals in code.
type AdminBootstrap struct {
	Username string
	Email    string
	Password string
	FullName string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "5000"
		log.Warn().Msg("server.port not set, defaulting to 5000")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("db.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("db.master_dsn is required")
	}

	var slaveDSNs []string
	if slave := cfg.GetString("db.slave_dsn"); slave != "" {
		slaveDSNs = append(slaveDSNs, slave)
	}

	opts := &dbpg.Options{
		MaxOpenConns:    cfg.GetInt("db.max_open_conns"),
		MaxIdleConns:    cfg.GetInt("db.max_idle_conns"),
		ConnMaxLifetime: time.Duration(cfg.GetInt("db.conn_max_lifetime_minutes")) * time.Minute,
	}
	if opts.MaxOpenConns == 0 {
		opts.MaxOpenConns = 25
	}
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 10
	}

	log.Info().Int("max_open_conns", opts.MaxOpenConns).Msg("database config loaded")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return RabbitConfig{}, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "emails"
	}
	if rc.Queue == "" {
		rc.Queue = "verification_emails"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("rabbit config loaded")
	return rc, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) (mailer.Config, error) {
	mc := mailer.Config{
		Host:            cfg.GetString("smtp.host"),
		Port:            cfg.GetInt("smtp.port"),
		Username:        cfg.GetString("smtp.username"),
		Password:        cfg.GetString("smtp.password"),
		From:            cfg.GetString("smtp.from"),
		ContactReceiver: cfg.GetString("smtp.contact_receiver"),
		DialTimeout:     time.Duration(cfg.GetInt("smtp.dial_timeout_seconds")) * time.Second,
	}
	if mc.Host == "" || mc.Port == 0 || mc.From == "" {
		return mailer.Config{}, fmt.Errorf("smtp.host, smtp.port and smtp.from are required")
	}
	log.Info().Str("host", mc.Host).Msg("smtp config loaded")
	return mc, nil
}

func BuildPaymentConfig(cfg *config.Config, log *zerolog.Logger) (payment.Config, string, error) {
	pc := payment.Config{
		BaseURL:     cfg.GetString("payment.base_url"),
		SecretKey:   cfg.GetString("payment.secret_key"),
		Currency:    cfg.GetString("payment.currency"),
		RedirectURL: cfg.GetString("payment.redirect_url"),
		Timeout:     time.Duration(cfg.GetInt("payment.timeout_seconds")) * time.Second,
	}
	if pc.BaseURL == "" || pc.SecretKey == "" {
		return payment.Config{}, "", fmt.Errorf("payment.base_url and payment.secret_key are required")
	}
	if pc.Currency == "" {
		pc.Currency = "RWF"
	}
	refPrefix := cfg.GetString("payment.reference_prefix")

	log.Info().Str("currency", pc.Currency).Msg("payment config loaded")
	return pc, refPrefix, nil
}

func BuildAuthConfig(cfg *config.Config, log *zerolog.Logger) (AuthConfig, error) {
	ac := AuthConfig{
		Secret:     cfg.GetString("auth.jwt_secret"),
		SessionTTL: time.Duration(cfg.GetInt("auth.session_ttl_hours")) * time.Hour,
	}
	if ac.Secret == "" {
		return AuthConfig{}, fmt.Errorf("auth.jwt_secret is required")
	}
	if ac.SessionTTL <= 0 {
		ac.SessionTTL = 24 * time.Hour
	}
	log.Info().Dur("session_ttl", ac.SessionTTL).Msg("auth config loaded")
	return ac, nil
}

func BuildAdminBootstrap(cfg *config.Config) AdminBootstrap {
	return AdminBootstrap{
		Username: cfg.GetString("admin.username"),
		Email:    cfg.GetString("admin.email"),
		Password: cfg.GetString("admin.password"),
		FullName: cfg.GetString("admin.full_name"),
	}
}

func (b AdminBootstrap) Complete() bool {
	return b.Username != "" && b.Email != "" && b.Password != ""
}
