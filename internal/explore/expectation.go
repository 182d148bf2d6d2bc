package explore

import (
	"bytes"
	"fmt"
	"strconv"
)

// Expectation is the tri-state answer to "was the outcome expected?".
// The zero value is ExpectUnclear, matching a fresh workflow.
type Expectation int

const (
	ExpectUnclear Expectation = iota
	ExpectYes
	ExpectNo
)

// String returns the human-readable form used by the CLI.
func (e Expectation) String() string {
	switch e {
	case ExpectYes:
		return "yes"
	case ExpectNo:
		return "no"
	default:
		return "unclear"
	}
}

// ParseExpectation converts a CLI/tool argument into an Expectation.
func ParseExpectation(s string) (Expectation, error) {
	switch s {
	case "yes":
		return ExpectYes, nil
	case "no":
		return ExpectNo, nil
	case "unclear", "":
		return ExpectUnclear, nil
	}
	return ExpectUnclear, fmt.Errorf("expectation must be one of: yes, no, unclear")
}

// MarshalJSON encodes the wire format the records API expects:
// 0 for expected, 1 for not expected, null for unclear.
func (e Expectation) MarshalJSON() ([]byte, error) {
	switch e {
	case ExpectYes:
		return []byte("0"), nil
	case ExpectNo:
		return []byte("1"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes the 0/1/null wire format.
func (e *Expectation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*e = ExpectUnclear
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid expectation value %q", string(data))
	}
	switch n {
	case 0:
		*e = ExpectYes
	case 1:
		*e = ExpectNo
	default:
		return fmt.Errorf("invalid expectation value %d", n)
	}
	return nil
}
