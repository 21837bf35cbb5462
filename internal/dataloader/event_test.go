package dataloader

import (
	"encoding/json"
	"testing"
)

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want ObjectLocation
		err  string
	}{
		{
			name: "happy-path",
			raw:  `{"s3":{"bucket":{"name":"landing"},"object":{"key":"in/a.csv"}}}`,
			want: ObjectLocation{Bucket: "landing", Key: "in/a.csv"},
		},
		{
			name: "url-encoded-key",
			raw:  `{"s3":{"bucket":{"name":"landing"},"object":{"key":"in/my+file%281%29.csv"}}}`,
			want: ObjectLocation{Bucket: "landing", Key: "in/my file(1).csv"},
		},
		{
			name: "unparseable-event-time",
			raw:  `{"eventTime":"yesterday","s3":{"bucket":{"name":"b"},"object":{"key":"a.csv"}}}`,
			want: ObjectLocation{Bucket: "b", Key: "a.csv"},
		},
		{
			name: "empty-event-time",
			raw:  `{"eventTime":"","s3":{"bucket":{"name":"b"},"object":{"key":"a.csv"}}}`,
			want: ObjectLocation{Bucket: "b", Key: "a.csv"},
		},
		{
			name: "string-size",
			raw:  `{"s3":{"bucket":{"name":"b"},"object":{"key":"a.csv","size":"12"}}}`,
			want: ObjectLocation{Bucket: "b", Key: "a.csv"},
		},
		{
			name: "string-request-parameters",
			raw:  `{"requestParameters":"x","s3":{"bucket":{"name":"b"},"object":{"key":"a.csv"}}}`,
			want: ObjectLocation{Bucket: "b", Key: "a.csv"},
		},
		{
			name: "missing-s3",
			raw:  `{}`,
			err:  "Invalid S3 structure: 's3'",
		},
		{
			name: "null-record",
			raw:  `null`,
			err:  "Invalid S3 structure: 's3'",
		},
		{
			name: "missing-bucket",
			raw:  `{"s3":{"object":{"key":"a.csv"}}}`,
			err:  "Invalid S3 structure: 'bucket'",
		},
		{
			name: "empty-bucket-name",
			raw:  `{"s3":{"bucket":{"name":""},"object":{"key":"a.csv"}}}`,
			err:  "Invalid S3 structure: 'name'",
		},
		{
			name: "missing-object",
			raw:  `{"s3":{"bucket":{"name":"landing"}}}`,
			err:  "Invalid S3 structure: 'object'",
		},
		{
			name: "missing-key",
			raw:  `{"s3":{"bucket":{"name":"landing"},"object":{"size":3}}}`,
			err:  "Invalid S3 structure: 'key'",
		},
		{
			name: "bucket-wrong-type",
			raw:  `{"s3":{"bucket":"landing","object":{"key":"a.csv"}}}`,
			err:  "Invalid S3 structure: 'bucket'",
		},
		{
			name: "key-wrong-type",
			raw:  `{"s3":{"bucket":{"name":"landing"},"object":{"key":7}}}`,
			err:  "Invalid S3 structure: 'key'",
		},
		{
			name: "undecodable-key",
			raw:  `{"s3":{"bucket":{"name":"landing"},"object":{"key":"bad%zzkey"}}}`,
			err:  "Invalid S3 structure: 'key'",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := parseRecord(json.RawMessage(tt.raw))
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

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		ok      bool
		records int
	}{
		{name: "records", payload: `{"Records":[{},{}]}`, ok: true, records: 2},
		{name: "empty-records", payload: `{"Records":[]}`, ok: true},
		{name: "missing-records", payload: `{"Items":[{}]}`, ok: false},
		{name: "records-wrong-type", payload: `{"Records":"x"}`, ok: false},
		{name: "not-json", payload: `Records`, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEvent([]byte(tt.payload))
			if ok != tt.ok {
				t.Fatalf("want ok=%v, got %v", tt.ok, ok)
			}
			if len(got.Records) != tt.records {
				t.Errorf("want %d records, got %d", tt.records, len(got.Records))
			}
		})
	}
}
