package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// BucketType is the kind of accounting bucket an approved report is filed under
type BucketType int

const (
	BucketTypeNone              BucketType = 0
	BucketTypeAdvanceSettlement BucketType = 1
	BucketTypePettyCash         BucketType = 2
)

var bucketTypeNames = [...]string{"NONE", "ADVANCE_SETTLEMENT", "PETTY_CASH"}

func (b BucketType) String() string {
	if b < 0 || int(b) >= len(bucketTypeNames) {
		return fmt.Sprintf("BucketType(%d)", int(b))
	}
	return bucketTypeNames[b]
}

// ParseBucketType accepts the upper-case bucket name
func ParseBucketType(str string) (BucketType, bool) {
	for i, name := range bucketTypeNames {
		if name == str {
			return BucketType(i), true
		}
	}
	return BucketTypeNone, false
}

// IsAssignable reports whether reports can be filed under this bucket type
func (b BucketType) IsAssignable() bool {
	return b == BucketTypeAdvanceSettlement || b == BucketTypePettyCash
}

func (b BucketType) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *BucketType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*b = BucketType(i)
		return nil
	}
	parsed, ok := ParseBucketType(str)
	if !ok {
		return fmt.Errorf("unknown bucket type %q", str)
	}
	*b = parsed
	return nil
}

func (b BucketType) Value() (driver.Value, error) {
	return int64(b), nil
}

func (b *BucketType) Scan(value interface{}) error {
	if value == nil {
		*b = BucketTypeNone
		return nil
	}
	switch v := value.(type) {
	case int64:
		*b = BucketType(v)
	case int:
		*b = BucketType(v)
	}
	return nil
}
