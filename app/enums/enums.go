// Package enums provides type-safe enumeration types shared by storage and api layers.
//
// Each enum is a small struct with a name and a value. Values are stored and
// transmitted by name, so the types implement fmt.Stringer, encoding.TextMarshaler,
// encoding.TextUnmarshaler, sql.Scanner and driver.Valuer.
//
// Usage:
//
//	status := enums.NotificationStatusPending
//	fmt.Println(status.String()) // "pending"
//
//	parsed, err := enums.ParseNotificationStatus("sent")
//	if err != nil {
//	    // handle invalid input
//	}
package enums

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// NotificationStatus is the delivery state of a reminder
type NotificationStatus struct {
	name  string
	value int
}

// notification statuses
var (
	NotificationStatusPending = NotificationStatus{name: "pending", value: 0}
	NotificationStatusSent    = NotificationStatus{name: "sent", value: 1}
	NotificationStatusFailed  = NotificationStatus{name: "failed", value: 2}
)

// NotificationStatusValues returns all notification statuses in declaration order
func NotificationStatusValues() []NotificationStatus {
	return []NotificationStatus{NotificationStatusPending, NotificationStatusSent, NotificationStatusFailed}
}

// ParseNotificationStatus converts a case-insensitive name to NotificationStatus
func ParseNotificationStatus(v string) (NotificationStatus, error) {
	for _, s := range NotificationStatusValues() {
		if strings.EqualFold(s.name, strings.TrimSpace(v)) {
			return s, nil
		}
	}
	return NotificationStatus{}, fmt.Errorf("invalid notification status: %q", v)
}

// String returns the lower-case name
func (e NotificationStatus) String() string { return e.name }

// Index returns the numeric value
func (e NotificationStatus) Index() int { return e.value }

// MarshalText implements encoding.TextMarshaler
func (e NotificationStatus) MarshalText() ([]byte, error) { return []byte(e.name), nil }

// UnmarshalText implements encoding.TextUnmarshaler
func (e *NotificationStatus) UnmarshalText(text []byte) error {
	v, err := ParseNotificationStatus(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}

// Value implements driver.Valuer, stored by name
func (e NotificationStatus) Value() (driver.Value, error) { return e.name, nil }

// Scan implements sql.Scanner
func (e *NotificationStatus) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return e.UnmarshalText([]byte(v))
	case []byte:
		return e.UnmarshalText(v)
	case nil:
		*e = NotificationStatusPending
		return nil
	default:
		return fmt.Errorf("can't scan %T into NotificationStatus", src)
	}
}

// SortDirection is the ordering direction for paged lists
type SortDirection struct {
	name  string
	value int
}

// sort directions
var (
	SortDirectionAsc  = SortDirection{name: "asc", value: 0}
	SortDirectionDesc = SortDirection{name: "desc", value: 1}
)

// ParseSortDirection converts a case-insensitive name to SortDirection
func ParseSortDirection(v string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "asc":
		return SortDirectionAsc, nil
	case "desc":
		return SortDirectionDesc, nil
	}
	return SortDirection{}, fmt.Errorf("invalid sort direction: %q", v)
}

// String returns the lower-case name
func (e SortDirection) String() string { return e.name }

// SQL returns the keyword used in ORDER BY
func (e SortDirection) SQL() string { return strings.ToUpper(e.name) }
