package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/linkkeeper/internal/flagx"
	"github.com/dmitrijs2005/linkkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept
// both "15m" strings and integer nanoseconds. Missing keys keep the value
// already in Config.
type JsonConfig struct {
	EndpointAddrHTTP           string         `json:"endpoint_addr_http"`
	DatabaseDSN                string         `json:"database_dsn"`
	DBConnectTimeout           timex.Duration `json:"db_connect_timeout"`
	DBMaxOpenConns             int            `json:"db_max_open_conns"`
	SecretKey                  string         `json:"secret_key"`
	TokenValidityDuration      timex.Duration `json:"token_validity_duration"`
	ResetTokenValidityDuration timex.Duration `json:"reset_token_validity_duration"`
	RequestTimeout             timex.Duration `json:"request_timeout"`
	AMQPURL                    string         `json:"amqp_url"`
	ResetMailQueue             string         `json:"reset_mail_queue"`
	ResetURLBase               string         `json:"reset_url_base"`
	LogLevel                   string         `json:"log_level"`
	LogFormat                  string         `json:"log_format"`
}

// parseJson reads the file given by -c/-config (or CONFIG) and copies every
// non-empty value into config. No path means nothing to do.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AMQPURL, c.AMQPURL)
	setString(&config.ResetMailQueue, c.ResetMailQueue)
	setString(&config.ResetURLBase, c.ResetURLBase)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	if c.DBMaxOpenConns > 0 {
		config.DBMaxOpenConns = c.DBMaxOpenConns
	}
	if c.DBConnectTimeout.Duration > 0 {
		config.DBConnectTimeout = c.DBConnectTimeout.Duration
	}
	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.ResetTokenValidityDuration.Duration > 0 {
		config.ResetTokenValidityDuration = c.ResetTokenValidityDuration.Duration
	}
	if c.RequestTimeout.Duration > 0 {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
