// cmd/lambda/main.go
package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/semmidev/zkbackup/internal/app"
	"github.com/semmidev/zkbackup/internal/config"
	"github.com/semmidev/zkbackup/internal/domain"
)

func main() {
	// Clients are built once per container and reused across invocations.
	cfg, err := config.Load(os.Getenv("ZKBACKUP_CONFIG"))
	if err != nil {
		log.Fatalf("Error: load config: %v\n", err)
	}

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Error: initialize app: %v\n", err)
	}

	lambda.Start(handler(application))
}

func handler(a *app.App) func(context.Context, events.CloudWatchEvent) (domain.Result, error) {
	return func(ctx context.Context, event events.CloudWatchEvent) (domain.Result, error) {
		var requestID string
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			requestID = lc.AwsRequestID
		}

		a.Logger().Infof("[%s] Received %s event %s at %s",
			requestID, event.DetailType, event.ID, event.Time.Format("2006-01-02T15:04:05Z07:00"))

		return a.RunOnce(ctx, requestID), nil
	}
}
