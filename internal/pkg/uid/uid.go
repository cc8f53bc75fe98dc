// Package uid generates identifiers.
//
// Numeric identifiers (snowflake) are used as primary keys for rows written by
// this service. String identifiers (UUID v7) are used for correlation ids and
// object keys.
package uid

// NumberID generates unique int64 identifiers.
type NumberID interface {
	Generate() int64
}

// StringID generates unique string identifiers.
type StringID interface {
	Generate() string
}
