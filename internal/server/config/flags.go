package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/linkkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g. ":3000")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   session token validity (e.g. "168h")
//	-r duration   password reset token validity (e.g. "1h")
//	-q string     AMQP URL for reset mail
//	-l string     log level
//
// Only these flags are picked out of args (see flagx.FilterArgs), so -c and
// anything else on the command line is ignored here.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-r", "-q", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidityDuration, "t", config.TokenValidityDuration, "session token validity")
	fs.DurationVar(&config.ResetTokenValidityDuration, "r", config.ResetTokenValidityDuration, "reset token validity")
	fs.StringVar(&config.AMQPURL, "q", config.AMQPURL, "AMQP URL for password reset mail")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
