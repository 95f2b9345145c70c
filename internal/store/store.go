package store

import (
	"errors"

	"github.com/caarlos0/concord4-bridge/internal/integration"
)

var ErrNotFound = errors.New("not found")

// Store persists config entries.
type Store interface {
	Create(title string, data integration.EntryData) (integration.ConfigEntry, error)
	Get(id string) (integration.ConfigEntry, error)
	List() ([]integration.ConfigEntry, error)
	Delete(id string) error
	Close() error
}
