package dataloader

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Event is the notification envelope. Records stays nil when the payload has
// no Records member, which is how a malformed envelope is told apart from an
// empty batch.
type Event struct {
	Records []json.RawMessage `json:"Records"`
}

// InvalidRecordError reports the first field a notification record is missing.
type InvalidRecordError struct {
	Field string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("Invalid S3 structure: '%s'", e.Field)
}

// recordShape holds only the fields a load needs; everything else in the
// record is ignored.
type recordShape struct {
	S3 *struct {
		Bucket *struct {
			Name *string `json:"name"`
		} `json:"bucket"`
		Object *struct {
			Key *string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// parseEvent decodes a raw invocation payload.
func parseEvent(payload []byte) (Event, bool) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil || event.Records == nil {
		return Event{}, false
	}
	return event, true
}

// parseRecord extracts the object location from one notification record. The
// returned S3EventRecord is decoded best effort and only feeds log lines.
func parseRecord(raw json.RawMessage) (events.S3EventRecord, ObjectLocation, error) {
	var shape recordShape
	if err := json.Unmarshal(raw, &shape); err != nil {
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: typeErrorField(err)}
	}
	switch {
	case shape.S3 == nil:
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "s3"}
	case shape.S3.Bucket == nil:
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "bucket"}
	case shape.S3.Bucket.Name == nil || *shape.S3.Bucket.Name == "":
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "name"}
	case shape.S3.Object == nil:
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "object"}
	case shape.S3.Object.Key == nil || *shape.S3.Object.Key == "":
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "key"}
	}

	// Keys arrive URL encoded.
	key, err := url.QueryUnescape(*shape.S3.Object.Key)
	if err != nil {
		return events.S3EventRecord{}, ObjectLocation{}, &InvalidRecordError{Field: "key"}
	}

	var record events.S3EventRecord
	_ = json.Unmarshal(raw, &record)
	return record, ObjectLocation{
		Bucket: *shape.S3.Bucket.Name,
		Key:    key,
	}, nil
}

// typeErrorField names the innermost field a decode error points at.
func typeErrorField(err error) string {
	typeErr, ok := err.(*json.UnmarshalTypeError)
	if !ok || typeErr.Field == "" {
		return "s3"
	}
	parts := strings.Split(typeErr.Field, ".")
	return parts[len(parts)-1]
}
