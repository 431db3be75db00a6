package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/imrishuroy/go-storefront/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "storefront-api",
		Usage: "storefront and admin HTTP API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run a local HTTP server",
				Action: func(c *cli.Context) error { return run(c.Context, serve) },
			},
			{
				Name:   "lambda",
				Usage:  "run behind API Gateway",
				Action: func(c *cli.Context) error { return run(c.Context, startLambda) },
			},
		},
		// no subcommand: RUN_LOCAL picks the mode
		Action: func(c *cli.Context) error {
			return run(c.Context, func(ctx context.Context, cfg config.Config, log *logrus.Entry, r *gin.Engine) error {
				if cfg.RunLocal {
					return serve(ctx, cfg, log, r)
				}
				return startLambda(ctx, cfg, log, r)
			})
		},
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("api exited")
	}
}

type runner func(ctx context.Context, cfg config.Config, log *logrus.Entry, r *gin.Engine) error

func run(ctx context.Context, start runner) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.Logger("api")
	router, err := buildRouter(ctx, cfg, log)
	if err != nil {
		return err
	}
	return start(ctx, cfg, log, router)
}

func serve(ctx context.Context, cfg config.Config, log *logrus.Entry, r *gin.Engine) error {
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("shutting down")
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func startLambda(ctx context.Context, cfg config.Config, log *logrus.Entry, r *gin.Engine) error {
	adapter := ginadapter.New(r)
	log.Info("starting lambda handler")
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
	return nil
}
