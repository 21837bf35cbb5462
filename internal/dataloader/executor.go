package dataloader

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/redshiftdataapiservice"
	"github.com/aws/aws-sdk-go/service/redshiftdataapiservice/redshiftdataapiserviceiface"
	"github.com/pkg/errors"
)

// Statement statuses reported by the executors. Anything else is treated as in-flight.
const (
	StatusFinished = "FINISHED"
	StatusFailed   = "FAILED"
	StatusAborted  = "ABORTED"
)

// Statement is a single SQL command bound to the database and user it runs as.
type Statement struct {
	Database string
	DbUser   string
	SQL      string
}

// StatementStatus is one observation of a submitted statement.
type StatementStatus struct {
	Status string
	Error  string
}

// Terminal reports whether no further status change is expected.
func (s StatementStatus) Terminal() bool {
	switch s.Status {
	case StatusFinished, StatusFailed, StatusAborted:
		return true
	}
	return false
}

// StatementExecutor submits statements and reports on their progress by handle.
type StatementExecutor interface {
	Submit(ctx context.Context, stmt Statement) (string, error)
	Describe(ctx context.Context, id string) (StatementStatus, error)
}

// DataAPIExecutor runs statements through the Redshift Data API.
type DataAPIExecutor struct {
	Svc               redshiftdataapiserviceiface.RedshiftDataAPIServiceAPI
	ClusterIdentifier string
}

// Submit starts stmt on the configured cluster and returns the Data API statement id.
func (e *DataAPIExecutor) Submit(ctx context.Context, stmt Statement) (string, error) {
	rsp, err := e.Svc.ExecuteStatementWithContext(ctx, &redshiftdataapiservice.ExecuteStatementInput{
		ClusterIdentifier: aws.String(e.ClusterIdentifier),
		Database:          aws.String(stmt.Database),
		DbUser:            aws.String(stmt.DbUser),
		Sql:               aws.String(stmt.SQL),
	})
	if err != nil {
		return "", errors.Wrapf(err, "execute statement on cluster %s", e.ClusterIdentifier)
	}
	id := aws.StringValue(rsp.Id)
	if id == "" {
		return "", errors.New("execute statement returned no statement id")
	}
	return id, nil
}

// Describe fetches the current status of statement id.
func (e *DataAPIExecutor) Describe(ctx context.Context, id string) (StatementStatus, error) {
	rsp, err := e.Svc.DescribeStatementWithContext(ctx, &redshiftdataapiservice.DescribeStatementInput{
		Id: aws.String(id),
	})
	if err != nil {
		return StatementStatus{}, errors.Wrapf(err, "describe statement %s", id)
	}
	return StatementStatus{
		Status: aws.StringValue(rsp.Status),
		Error:  aws.StringValue(rsp.Error),
	}, nil
}
