package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TaskID identifies a task. Real tasks carry numeric ids; synthetic tasks
// (parts that have no database row) carry opaque string ids. The zero
// value means "no task".
//
// TaskID is comparable and is the only key type used for cache and
// expansion lookups, so "42" and 42 always collapse to the same key.
type TaskID struct {
	num       int64
	str       string
	synthetic bool
}

// NumericID returns the id of a task backed by a database row.
func NumericID(n int64) TaskID {
	return TaskID{num: n}
}

// SyntheticID returns the id of a task that is not backed by a database
// row. Strings holding a base-10 integer normalize to a numeric id.
func SyntheticID(s string) TaskID {
	return ParseTaskID(s)
}

// ParseTaskID normalizes a raw identifier.
func ParseTaskID(raw string) TaskID {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TaskID{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TaskID{num: n}
	}
	return TaskID{str: s, synthetic: true}
}

// IsZero reports whether the id is unset.
func (id TaskID) IsZero() bool {
	return !id.synthetic && id.num == 0
}

// IsSynthetic reports whether the id belongs to a task not backed by a row.
func (id TaskID) IsSynthetic() bool {
	return id.synthetic
}

// Int64 returns the numeric value. ok is false for synthetic ids.
func (id TaskID) Int64() (n int64, ok bool) {
	if id.synthetic {
		return 0, false
	}
	return id.num, true
}

func (id TaskID) String() string {
	if id.synthetic {
		return id.str
	}
	if id.num == 0 {
		return ""
	}
	return strconv.FormatInt(id.num, 10)
}

// MarshalJSON writes numeric ids as numbers, synthetic ids as strings and
// the zero id as null.
func (id TaskID) MarshalJSON() ([]byte, error) {
	switch {
	case id.synthetic:
		return json.Marshal(id.str)
	case id.num == 0:
		return []byte("null"), nil
	default:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	}
}

// UnmarshalJSON accepts numbers, strings and null.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = TaskID{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid task id %s: %w", data, err)
		}
		*id = ParseTaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid task id %s: %w", data, err)
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("invalid task id %s: %w", data, err)
	}
	*id = TaskID{num: v}
	return nil
}

// MarshalYAML writes the canonical string form.
func (id TaskID) MarshalYAML() (interface{}, error) {
	if id.IsZero() {
		return nil, nil
	}
	if n, ok := id.Int64(); ok {
		return n, nil
	}
	return id.str, nil
}
