package domain

import "strings"

const (
	// MaxNameLength is counted in characters, not bytes.
	MaxNameLength = 50
	MinValue      = 0
	MaxValue      = 2147483647
)

// Employee is a directory record. Name is the record's only identity.
type Employee struct {
	Name  string `gorm:"primaryKey;column:name;type:varchar(50);not null" json:"name" dynamodbav:"name"`
	Value int64  `gorm:"column:value;type:integer;not null;check:chk_employees_value_range,value >= 0 AND value <= 2147483647" json:"value" dynamodbav:"value"`
}

func (Employee) TableName() string { return "employees" }

// Key returns the lookup key addressing this record as currently named.
func (e Employee) Key() EmployeeKey { return EmployeeKey(e.Name) }

// Normalized returns a copy with the name trimmed.
func (e Employee) Normalized() Employee {
	return Employee{Name: strings.TrimSpace(e.Name), Value: e.Value}
}

// EmployeeKey identifies an existing record by its current name. It is kept
// distinct from Employee.Name so a rename carries both the old key and the
// new name explicitly.
type EmployeeKey string

func (k EmployeeKey) String() string { return string(k) }

// ParseEmployeeKey rejects empty and all-whitespace keys. The key itself is
// not trimmed: it must match the stored name exactly.
func ParseEmployeeKey(raw string) (EmployeeKey, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ValidationError("employee.key", "key must not be blank")
	}
	return EmployeeKey(raw), nil
}

// FirstChar returns the first character of the name, or false for an empty name.
func FirstChar(name string) (rune, bool) {
	for _, r := range name {
		return r, true
	}
	return 0, false
}
