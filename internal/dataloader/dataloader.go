package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
)

const (
	msgInvalidEvent = "Invalid event format"
	msgSuccess      = "Function executed successfully."
)

// Config keys read for every record.
const (
	DatabaseNameKey = "DBNAME"
	DatabaseUserKey = "REDSHIFT_USER"
	// DefaultTableNameKey is used when Options.TableNameKey is empty.
	DefaultTableNameKey = "TABLENAME"
)

// Response is what the function returns to its invoker.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// LoadFailedError carries the error reported for a statement that ended badly.
type LoadFailedError struct {
	StatementID string
	Status      string
	Detail      string
}

func (e *LoadFailedError) Error() string {
	return e.Detail
}

// Options select between deployments of the same loader.
type Options struct {
	// TableNameKey is the configuration key holding the target table.
	TableNameKey string
	IAMRole      string
	Permissive   bool
	// AbortedIsSuccess keeps going after an ABORTED statement instead of
	// failing the batch.
	AbortedIsSuccess bool
}

// Dispatcher takes care of loading every object in a notification batch into Redshift.
type Dispatcher struct {
	Executor StatementExecutor
	Logger   log.Logger
	// Lookup reads configuration values, os.Getenv in production.
	Lookup  func(string) string
	Options Options
	Poll    PollConfig
	// S3Svc, when set, is used to confirm each object exists before loading it.
	S3Svc s3iface.S3API
}

// Handle loads every record of payload in order, stopping at the first failure.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) Response {
	start := time.Now()
	logger := d.logger()
	level.Info(logger).Log("msg", "load started")

	event, ok := parseEvent(payload)
	if !ok {
		level.Error(logger).Log("msg", "no records found in event")
		return Response{StatusCode: http.StatusBadRequest, Body: msgInvalidEvent}
	}

	for i, raw := range event.Records {
		if err := d.loadRecord(ctx, raw); err != nil {
			level.Error(logger).Log("msg", "load aborted", "record", i, "err", err)
			return errorResponse(err)
		}
	}

	level.Info(logger).Log("msg", "load complete",
		"records", len(event.Records),
		"elapsed_time", time.Since(start))
	return Response{StatusCode: http.StatusOK, Body: msgSuccess}
}

// loadRecord runs one record from submission through to a terminal status.
func (d *Dispatcher) loadRecord(ctx context.Context, raw []byte) error {
	record, source, err := parseRecord(raw)
	if err != nil {
		return err
	}

	req, err := d.loadRequest(source)
	if err != nil {
		return err
	}
	logger := log.With(d.logger(), "from_path", source.URI())
	level.Info(logger).Log("msg", "loading object",
		"event_name", record.EventName,
		"bucket", source.Bucket,
		"key", source.Key,
		"size", record.S3.Object.Size,
		"database", req.Database,
		"db_user", req.DbUser,
		"table_name", req.Table)

	if d.S3Svc != nil {
		if err := d.verifyObject(ctx, source); err != nil {
			return err
		}
	}

	query := RenderCopyStatement(req, CopyOptions{IAMRole: d.Options.IAMRole, Permissive: d.Options.Permissive})
	level.Debug(logger).Log("msg", "built copy statement", "generated_query", query)

	id, err := d.Executor.Submit(ctx, Statement{Database: req.Database, DbUser: req.DbUser, SQL: query})
	if err != nil {
		return err
	}
	level.Info(logger).Log("msg", "copy command submitted", "statement_id", id)

	status, err := d.waitForStatement(ctx, id)
	if err != nil {
		return err
	}

	switch status.Status {
	case StatusFailed:
		detail := status.Error
		if detail == "" {
			detail = fmt.Sprintf("statement %s failed", id)
		}
		return &LoadFailedError{StatementID: id, Status: status.Status, Detail: detail}
	case StatusAborted:
		if !d.Options.AbortedIsSuccess {
			return &LoadFailedError{StatementID: id, Status: status.Status, Detail: fmt.Sprintf("statement %s was aborted", id)}
		}
		level.Warn(logger).Log("msg", "copy command aborted, continuing", "statement_id", id)
		return nil
	}
	level.Info(logger).Log("msg", "data loaded successfully", "statement_id", id)
	return nil
}

// loadRequest reads the target database, user and table for source.
func (d *Dispatcher) loadRequest(source ObjectLocation) (LoadRequest, error) {
	tableKey := d.Options.TableNameKey
	if tableKey == "" {
		tableKey = DefaultTableNameKey
	}
	lookup := d.Lookup
	if lookup == nil {
		lookup = os.Getenv
	}
	values := make(map[string]string, 3)
	for _, key := range []string{DatabaseNameKey, DatabaseUserKey, tableKey} {
		v := lookup(key)
		if v == "" {
			return LoadRequest{}, errors.Errorf("missing configuration value %s", key)
		}
		values[key] = v
	}
	return LoadRequest{
		Source:   source,
		Table:    values[tableKey],
		Database: values[DatabaseNameKey],
		DbUser:   values[DatabaseUserKey],
	}, nil
}

// verifyObject confirms source exists and is readable.
func (d *Dispatcher) verifyObject(ctx context.Context, source ObjectLocation) error {
	_, err := d.S3Svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(source.Bucket),
		Key:    aws.String(source.Key),
	})
	return errors.Wrapf(err, "head object %s", source.URI())
}

// errorResponse maps a load error to the status code and body returned to the invoker.
func errorResponse(err error) Response {
	var invalid *InvalidRecordError
	if errors.As(err, &invalid) {
		return Response{StatusCode: http.StatusBadRequest, Body: invalid.Error()}
	}
	return Response{StatusCode: http.StatusInternalServerError, Body: errors.Cause(err).Error()}
}
