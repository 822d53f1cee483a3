package main

import (
	"context"
	"log"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"

	"csgclient/infrastructure/config"
	"csgclient/infrastructure/di"
	"csgclient/interfaces/http/rest"
)

var (
	chiLambda     *chiadapter.ChiLambdaV2
	container     *di.Container
	coldStart     = true
	coldStartTime time.Time
)

func init() {
	coldStartTime = time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Lambda instances are short-lived and share no filesystem events.
	cfg.WatchCatalog = false

	// The cleanup is never run: the runtime freezes the process instead.
	container, _, err = di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	router := rest.NewRouter(
		cfg,
		container.Analysis,
		container.QueryBus,
		container.ErrorHandler,
		container.Metrics,
		container.Logger,
	)
	chiLambda = chiadapter.NewV2(router.Setup())

	container.Logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(coldStartTime)))
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Lambda-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
		)
	}
	return resp, err
}

func main() {
	lambda.Start(Handler)
}
