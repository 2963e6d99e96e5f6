package model

import (
	"fmt"
	"time"
)

// Attribute names of the metadata record, as stored. These are the wire
// schema of the metadata table and must not change without a migration.
const (
	AttrID           = "UniqueId"
	AttrName         = "EntityName"
	AttrParentID     = "ParentId"
	AttrIsDirectory  = "IsDirectory"
	AttrFileSize     = "FileSize"
	AttrContentType  = "ContentType"
	AttrCreatedDate  = "CreatedDate"
	AttrModifiedDate = "ModifiedDate"
)

// NoParent is the sentinel ParentId value marking the root. It is not a
// valid entity id, so it can never collide with a real parent reference.
const NoParent = "NONE"

// TimestampFormat is the fixed textual layout of CreatedDate/ModifiedDate.
const TimestampFormat = "Mon Jan 02 15:04:05 -0700 2006"

// Record is the flat, store-native representation of one entity.
//
// The dynamodbav tags drive DynamoDB attribute marshalling; the json tags
// drive serialization in embedded stores. Both use the wire attribute names.
type Record struct {
	ID           string `dynamodbav:"UniqueId"     json:"UniqueId"`
	Name         string `dynamodbav:"EntityName"   json:"EntityName"`
	ParentID     string `dynamodbav:"ParentId"     json:"ParentId"`
	IsDirectory  int    `dynamodbav:"IsDirectory"  json:"IsDirectory"`
	FileSize     int64  `dynamodbav:"FileSize"     json:"FileSize"`
	ContentType  string `dynamodbav:"ContentType"  json:"ContentType"`
	CreatedDate  string `dynamodbav:"CreatedDate"  json:"CreatedDate"`
	ModifiedDate string `dynamodbav:"ModifiedDate" json:"ModifiedDate"`
}

// IsRoot reports whether the record carries the sentinel parent id.
func (r *Record) IsRoot() bool {
	return r.ParentID == NoParent
}

// IsDir reports whether the record describes a folder.
func (r *Record) IsDir() bool {
	return r.IsDirectory == 1
}

// FormatTimestamp renders t in the record timestamp layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampFormat)
}

// ParseTimestamp parses a record timestamp. Callers that can tolerate
// malformed historical data should treat a failure as a zero time rather
// than an error; see TimestampWarnings.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampFormat, s)
}

// TimestampWarnings returns one error per timestamp attribute of r that is
// non-empty but unparseable. Conversion treats such values as zero times so
// that malformed historical data never blocks a listing; callers use this to
// log what was dropped.
func TimestampWarnings(r *Record) []error {
	var warnings []error
	for _, attr := range []struct {
		name  string
		value string
	}{
		{AttrCreatedDate, r.CreatedDate},
		{AttrModifiedDate, r.ModifiedDate},
	} {
		if attr.value == "" {
			continue
		}
		if _, err := ParseTimestamp(attr.value); err != nil {
			warnings = append(warnings, fmt.Errorf("record %s: unparseable %s %q: %w", r.ID, attr.name, attr.value, err))
		}
	}
	return warnings
}
