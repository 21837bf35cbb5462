package dataloader

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/redshiftdataapiservice"
	"github.com/aws/aws-sdk-go/service/redshiftdataapiservice/redshiftdataapiserviceiface"
)

func TestDataAPIExecutorSubmit(t *testing.T) {
	tests := []struct {
		name string
		svc  *mockDataAPI
		want string
		err  string
	}{
		{
			name: "happy-path",
			svc:  &mockDataAPI{id: "d9b6c0c9-0747-4bf4-b142-e8883122f766"},
			want: "d9b6c0c9-0747-4bf4-b142-e8883122f766",
		},
		{
			name: "service-error",
			svc:  &mockDataAPI{errToReturn: errors.New("ValidationException: cluster not found")},
			err:  "execute statement on cluster redshift-cluster-1: ValidationException: cluster not found",
		},
		{
			name: "no-id",
			svc:  &mockDataAPI{},
			err:  "execute statement returned no statement id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &DataAPIExecutor{Svc: tt.svc, ClusterIdentifier: "redshift-cluster-1"}
			got, err := e.Submit(context.Background(), Statement{Database: "dev", DbUser: "awsuser", SQL: "COPY t FROM 's3://b/k';"})
			if tt.err != "" {
				if err == nil || err.Error() != tt.err {
					t.Fatalf("want: %s, got: %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("want: %s, got: %s", tt.want, got)
			}
			in := tt.svc.executed
			if aws.StringValue(in.ClusterIdentifier) != "redshift-cluster-1" ||
				aws.StringValue(in.Database) != "dev" ||
				aws.StringValue(in.DbUser) != "awsuser" ||
				aws.StringValue(in.Sql) != "COPY t FROM 's3://b/k';" {
				t.Errorf("unexpected execute input: %s", in)
			}
		})
	}
}

func TestDataAPIExecutorDescribe(t *testing.T) {
	tests := []struct {
		name string
		svc  *mockDataAPI
		want StatementStatus
		err  string
	}{
		{
			name: "finished",
			svc:  &mockDataAPI{status: "FINISHED"},
			want: StatementStatus{Status: StatusFinished},
		},
		{
			name: "failed",
			svc:  &mockDataAPI{status: "FAILED", statusErr: "Load into table 'sales' failed."},
			want: StatementStatus{Status: StatusFailed, Error: "Load into table 'sales' failed."},
		},
		{
			name: "service-error",
			svc:  &mockDataAPI{errToReturn: errors.New("ResourceNotFoundException")},
			err:  "describe statement abc: ResourceNotFoundException",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &DataAPIExecutor{Svc: tt.svc, ClusterIdentifier: "redshift-cluster-1"}
			got, err := e.Describe(context.Background(), "abc")
			if tt.err != "" {
				if err == nil || err.Error() != tt.err {
					t.Fatalf("want: %s, got: %v", tt.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("want: %+v, got: %+v", tt.want, got)
			}
		})
	}
}

func TestStatementStatusTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		"SUBMITTED": false,
		"PICKED":    false,
		"STARTED":   false,
		"FINISHED":  true,
		"FAILED":    true,
		"ABORTED":   true,
	} {
		if got := (StatementStatus{Status: status}).Terminal(); got != want {
			t.Errorf("%s: want terminal=%v, got %v", status, want, got)
		}
	}
}

type mockDataAPI struct {
	redshiftdataapiserviceiface.RedshiftDataAPIServiceAPI
	errToReturn error
	id          string
	status      string
	statusErr   string

	executed *redshiftdataapiservice.ExecuteStatementInput
}

func (c *mockDataAPI) ExecuteStatementWithContext(ctx aws.Context, input *redshiftdataapiservice.ExecuteStatementInput, opts ...request.Option) (*redshiftdataapiservice.ExecuteStatementOutput, error) {
	c.executed = input
	if c.errToReturn != nil {
		return nil, c.errToReturn
	}
	out := &redshiftdataapiservice.ExecuteStatementOutput{}
	if c.id != "" {
		out.Id = aws.String(c.id)
	}
	return out, nil
}

func (c *mockDataAPI) DescribeStatementWithContext(ctx aws.Context, input *redshiftdataapiservice.DescribeStatementInput, opts ...request.Option) (*redshiftdataapiservice.DescribeStatementOutput, error) {
	if c.errToReturn != nil {
		return nil, c.errToReturn
	}
	out := &redshiftdataapiservice.DescribeStatementOutput{
		Id:     input.Id,
		Status: aws.String(c.status),
	}
	if c.statusErr != "" {
		out.Error = aws.String(c.statusErr)
	}
	return out, nil
}
