package enums

import "fmt"

// IssueStatus is the state of an order issue.
type IssueStatus string

const (
	IssueStatusOpen      IssueStatus = "open"
	IssueStatusResolved  IssueStatus = "resolved"
	IssueStatusEscalated IssueStatus = "escalated"
)

var validIssueStatuses = []IssueStatus{
	IssueStatusOpen,
	IssueStatusResolved,
	IssueStatusEscalated,
}

// String implements fmt.Stringer.
func (i IssueStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IssueStatus.
func (i IssueStatus) IsValid() bool {
	for _, candidate := range validIssueStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIssueStatus converts raw input into an IssueStatus.
func ParseIssueStatus(value string) (IssueStatus, error) {
	for _, candidate := range validIssueStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid issue status %q", value)
}
