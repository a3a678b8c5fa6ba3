// Package backend builds the record store a binary runs against, together
// with the optional change publisher that fans writes out to other processes.
package backend

import (
	"context"

	"bilancio/internal/amqp"
	"bilancio/internal/records"
	"bilancio/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result is a ready store plus the optional AMQP client. Publisher is nil
// when no broker is configured; callers pass it to the household service
// as is.
type Result struct {
	Store   records.Store
	AMQP    *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the AMQP client as a change publisher, or nil. The
// explicit nil keeps a nil *amqp.Client out of a non-nil interface.
func (r *Result) Publisher() services.ChangePublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Memory specific: directory of *.household.json seed files, optional
	MemorySeedDir string

	// Change fan-out, optional for both backends
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
