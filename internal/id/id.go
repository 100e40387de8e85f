// Package id generates run identifiers.
package id

import "github.com/google/uuid"

// NewRunID returns a time-ordered UUID string. V7 keeps checkpoint prefixes
// sortable by run start; falls back to V4 if the clock source fails.
func NewRunID() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return v7.String()
}
