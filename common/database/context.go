// Package database holds helpers shared by the Postgres-backed repositories.
package database

import (
	"context"
	"time"
)

const (
	QueryTimeout = 5 * time.Second
	WriteTimeout = 10 * time.Second
	// AggregateTimeout bounds statistics queries that scan an owner's alerts.
	AggregateTimeout = 30 * time.Second
)

// QueryContext bounds a read.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, QueryTimeout)
}

// WriteContext bounds an INSERT, UPDATE or DELETE.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, WriteTimeout)
}

// AggregateContext bounds grouped counts.
func AggregateContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, AggregateTimeout)
}
