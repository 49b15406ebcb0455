package enum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ApprovalState represents where an expense report sits in the approval lifecycle
type ApprovalState int

const (
	ApprovalStatePending  ApprovalState = 0
	ApprovalStateApproved ApprovalState = 1
	ApprovalStateRejected ApprovalState = 2
)

var approvalStateNames = [...]string{"PENDING", "APPROVED", "REJECTED"}

func (s ApprovalState) String() string {
	if s < 0 || int(s) >= len(approvalStateNames) {
		return fmt.Sprintf("ApprovalState(%d)", int(s))
	}
	return approvalStateNames[s]
}

// ParseApprovalState accepts the upper-case state name
func ParseApprovalState(str string) (ApprovalState, bool) {
	for i, name := range approvalStateNames {
		if name == str {
			return ApprovalState(i), true
		}
	}
	return ApprovalStatePending, false
}

func (s ApprovalState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ApprovalState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = ApprovalState(i)
		return nil
	}
	parsed, ok := ParseApprovalState(str)
	if !ok {
		return fmt.Errorf("unknown approval state %q", str)
	}
	*s = parsed
	return nil
}

func (s ApprovalState) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *ApprovalState) Scan(value interface{}) error {
	if value == nil {
		*s = ApprovalStatePending
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = ApprovalState(v)
	case int:
		*s = ApprovalState(v)
	}
	return nil
}
