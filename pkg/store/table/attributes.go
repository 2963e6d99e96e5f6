package table

import (
	"fmt"

	"github.com/marmos91/s3dav/pkg/model"
)

// ApplyUpdate overwrites the named attributes on rec in place.
//
// Shared by the embedded implementations (memory, badger) which realize
// partial updates as read-modify-write; the DynamoDB implementation builds
// a native UpdateItem expression instead but enforces the same attribute
// names and types.
func ApplyUpdate(rec *model.Record, updates Update) error {
	for attr, value := range updates {
		switch attr {
		case model.AttrName:
			s, ok := asString(value)
			if !ok {
				return fmt.Errorf("attribute %s: want string, got %T", attr, value)
			}
			rec.Name = s
		case model.AttrParentID:
			s, ok := asString(value)
			if !ok {
				return fmt.Errorf("attribute %s: want string, got %T", attr, value)
			}
			rec.ParentID = s
		case model.AttrContentType:
			s, ok := asString(value)
			if !ok {
				return fmt.Errorf("attribute %s: want string, got %T", attr, value)
			}
			rec.ContentType = s
		case model.AttrCreatedDate:
			s, ok := asString(value)
			if !ok {
				return fmt.Errorf("attribute %s: want string, got %T", attr, value)
			}
			rec.CreatedDate = s
		case model.AttrModifiedDate:
			s, ok := asString(value)
			if !ok {
				return fmt.Errorf("attribute %s: want string, got %T", attr, value)
			}
			rec.ModifiedDate = s
		case model.AttrIsDirectory:
			n, ok := asInt64(value)
			if !ok {
				return fmt.Errorf("attribute %s: want integer, got %T", attr, value)
			}
			rec.IsDirectory = int(n)
		case model.AttrFileSize:
			n, ok := asInt64(value)
			if !ok {
				return fmt.Errorf("attribute %s: want integer, got %T", attr, value)
			}
			rec.FileSize = n
		case model.AttrID:
			return fmt.Errorf("attribute %s is immutable", attr)
		default:
			return fmt.Errorf("unknown record attribute %q", attr)
		}
	}
	return nil
}

// Matches reports whether rec satisfies every equality in filter.
func Matches(rec *model.Record, filter Filter) bool {
	for attr, want := range filter {
		switch attr {
		case model.AttrID:
			if s, ok := asString(want); !ok || rec.ID != s {
				return false
			}
		case model.AttrName:
			if s, ok := asString(want); !ok || rec.Name != s {
				return false
			}
		case model.AttrParentID:
			if s, ok := asString(want); !ok || rec.ParentID != s {
				return false
			}
		case model.AttrContentType:
			if s, ok := asString(want); !ok || rec.ContentType != s {
				return false
			}
		case model.AttrCreatedDate:
			if s, ok := asString(want); !ok || rec.CreatedDate != s {
				return false
			}
		case model.AttrModifiedDate:
			if s, ok := asString(want); !ok || rec.ModifiedDate != s {
				return false
			}
		case model.AttrIsDirectory:
			if n, ok := asInt64(want); !ok || int64(rec.IsDirectory) != n {
				return false
			}
		case model.AttrFileSize:
			if n, ok := asInt64(want); !ok || rec.FileSize != n {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
