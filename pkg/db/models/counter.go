package models

// Counter is a named monotonically increasing sequence.
type Counter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}

// CounterOrderRevision stamps every order mutation.
const CounterOrderRevision = "order_revision"
