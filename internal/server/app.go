// Package server initializes and runs the LinkKeeper API server: it opens
// the database, applies migrations, wires services and serves HTTP until a
// shutdown signal arrives.
package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/linkkeeper/internal/dbx"
	"github.com/dmitrijs2005/linkkeeper/internal/logging"
	"github.com/dmitrijs2005/linkkeeper/internal/server/config"
	"github.com/dmitrijs2005/linkkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/linkkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/linkkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/linkkeeper/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	connector *dbx.Connector
	publisher mailer.Publisher
	http      *httpapi.HTTPServer
}

// NewApp opens the shared database handle, runs migrations and builds the
// HTTP server. The database must answer before the app is considered built.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, c.LogLevel, c.LogFormat)

	connector := dbx.NewConnector(repomanager.DriverName, c.DatabaseDSN, dbx.ConnectorOptions{
		MaxOpenConns:   c.DBMaxOpenConns,
		ConnectTimeout: c.DBConnectTimeout,
	})

	db, err := connector.DB(ctx)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = connector.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	publisher, err := newPublisher(c, logger)
	if err != nil {
		_ = connector.Close()
		return nil, err
	}

	creds := services.NewCredentialService(db, rm, c)
	identity := services.NewIdentityService(db, rm, c, creds, publisher, logger.With("module", "identity"))
	folders := services.NewFolderService(db, rm)
	links := services.NewLinkService(folders)

	srv := httpapi.NewHTTPServer(c.EndpointAddrHTTP, logger, httpapi.Services{
		Identity: identity,
		Folders:  folders,
		Links:    links,
		Health:   connector,
	}, c.RequestTimeout, httpapi.DefaultLimits)

	return &App{
		config:    c,
		logger:    logger,
		connector: connector,
		publisher: publisher,
		http:      srv,
	}, nil
}

// newPublisher connects to RabbitMQ when a URL is configured and falls
// back to logging reset messages otherwise.
func newPublisher(c *config.Config, logger logging.Logger) (mailer.Publisher, error) {
	if c.AMQPURL == "" {
		return mailer.NewLogPublisher(logger.With("module", "mailer")), nil
	}
	p, err := mailer.NewAMQPPublisher(c.AMQPURL, c.ResetMailQueue)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq init error: %w", err)
	}
	return p, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// releases the broker connection and the database pool.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.publisher.Close(); err != nil {
		app.logger.Error(ctx, "closing mail publisher", "error", err)
	}
	if err := app.connector.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}

	app.logger.Info(ctx, "App stopped")
}
