//go:build !test
// +build !test

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"

	"github.com/KingRyuK69/AWS-S3-RS-Lambda/internal/config"
	"github.com/KingRyuK69/AWS-S3-RS-Lambda/internal/dataloader"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/redshiftdataapiservice"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	_ "github.com/lib/pq"
)

func main() {

	var (
		sess   = session.Must(session.NewSession())
		logger = dataloader.NewLogger(os.Stdout)
	)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	// Fetch role, cluster and credentials kept in SSM
	if err := cfg.ResolveParameters(context.Background(), ssm.New(sess)); err != nil {
		panic(err)
	}
	poll, err := cfg.PollConfig()
	if err != nil {
		panic(err)
	}

	var executor dataloader.StatementExecutor
	switch cfg.Executor {
	case config.ExecutorSQL:
		// Establish DB connection
		db, err := sql.Open("postgres", cfg.PostgresDSN())
		if err != nil {
			panic(err)
		}
		executor = dataloader.NewSQLExecutor(db)
	default:
		executor = &dataloader.DataAPIExecutor{
			Svc:               redshiftdataapiservice.New(sess),
			ClusterIdentifier: cfg.ClusterIdentifier,
		}
	}

	var s3Svc s3iface.S3API
	if cfg.VerifyObjects {
		s3Svc = s3.New(sess)
	}

	level.Info(logger).Log("msg", "loader configured",
		"executor", cfg.Executor,
		"table_name_key", cfg.TableNameKey,
		"permissive", cfg.Permissive)

	// Start up lambda handler
	lambda.Start(func(ctx context.Context, payload json.RawMessage) (*dataloader.Response, error) {
		h := handler{
			d: &dataloader.Dispatcher{
				Executor: executor,
				Logger:   log.With(logger, "request_id", requestID(ctx)),
				Lookup:   os.Getenv,
				Options:  cfg.Options(),
				Poll:     poll,
				S3Svc:    s3Svc,
			},
		}
		return h.handle(ctx, payload)
	})
}

func requestID(ctx context.Context) string {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok {
		return ""
	}
	return lc.AwsRequestID
}
