package dataloader

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ObjectLocation identifies one S3 object named by a notification record.
type ObjectLocation struct {
	Bucket string
	Key    string
}

// URI renders the location as s3://bucket/key.
func (o ObjectLocation) URI() string {
	return fmt.Sprintf("s3://%s/%s", o.Bucket, o.Key)
}

// LoadRequest is everything needed to copy one object into one table.
type LoadRequest struct {
	Source   ObjectLocation
	Table    string
	Database string
	DbUser   string
}

// CopyOptions shape the rendered COPY statement.
type CopyOptions struct {
	IAMRole string
	// Permissive turns empty and blank fields into NULL, parses dates and
	// times automatically and replaces invalid characters instead of failing.
	Permissive bool
}

// RenderCopyStatement builds a CSV COPY command for req.
func RenderCopyStatement(req LoadRequest, opts CopyOptions) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("COPY %s\n", req.Table))
	sb.WriteString(fmt.Sprintf("FROM %s\n", pq.QuoteLiteral(req.Source.URI())))
	sb.WriteString(fmt.Sprintf("IAM_ROLE %s\n", pq.QuoteLiteral(opts.IAMRole)))
	sb.WriteString("CSV\n")
	sb.WriteString("IGNOREHEADER 1")
	if opts.Permissive {
		sb.WriteString("\nNULL 'NULL'")
		sb.WriteString("\nBLANKSASNULL")
		sb.WriteString("\nEMPTYASNULL")
		sb.WriteString("\nDATEFORMAT 'auto'")
		sb.WriteString("\nTIMEFORMAT 'auto'")
		sb.WriteString("\nACCEPTINVCHARS")
	}
	sb.WriteString(";")
	return sb.String()
}
