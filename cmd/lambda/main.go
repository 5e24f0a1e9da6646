// Command lambda serves the BFA router behind an API Gateway HTTP API.
// Secrets are resolved from SSM Parameter Store under PARAM_PREFIX before
// the configuration is read.
package main

import (
	"context"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/app"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/config"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/handler"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/observability"
	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/paramstore"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	logger := observability.NewLogger(config.Load().LogLevel)
	defer logger.Sync()

	// ---- Secrets ----
	if prefix := config.Load().ParamPrefix; prefix != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			logger.Fatal("failed to load AWS config", zap.Error(err))
		}
		params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
		if err != nil {
			logger.Fatal("failed to create SSM client", zap.Error(err))
		}
		if err := params.ExportEnv(ctx, prefix, paramstore.SecretKeys, logger); err != nil {
			logger.Fatal("failed to resolve secrets", zap.Error(err))
		}
	} else {
		logger.Warn("PARAM_PREFIX not set: secrets are read from the environment only")
	}

	// ---- Application ----
	cfg := config.Load()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build application", zap.Error(err))
	}
	defer application.Close(ctx)

	lambda.Start(handler.APIGatewayHandler(application.Handler))
}
