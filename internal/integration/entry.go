package integration

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EntryData is what gets persisted for a configured panel.
type EntryData struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

type ConfigEntry struct {
	ID        string    `json:"entry_id" yaml:"entry_id"`
	Title     string    `json:"title" yaml:"title"`
	Data      EntryData `json:"data" yaml:"data"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// ParsePort validates a TCP port the way the user types it.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: %w", s, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid port %d: must be between 1 and 65535", port)
	}
	return port, nil
}
