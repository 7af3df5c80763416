package storage

import (
	"context"
	"crypto/md5"
	"fmt"
	"time"

	"github.com/tilezen/ogctiles/pkg/tile"
)

// Storage reads pre-rendered tiles.
type Storage interface {
	Fetch(ctx context.Context, c tile.Coord, layer string) (*StorageResponse, error)
	// Location names where a tile would be read from, for logs and errors.
	Location(c tile.Coord, layer string) (string, error)
	HealthCheck(ctx context.Context) error
}

type SuccessfulResponse struct {
	Body         []byte
	LastModified *time.Time
	ETag         *string
	Size         uint64
}

type StorageResponse struct {
	Response *SuccessfulResponse
	NotFound bool
}

// KeyPlaceholders are the names a storage key pattern may use.
var KeyPlaceholders = map[string]bool{
	"z":     true,
	"x":     true,
	"y":     true,
	"fmt":   true,
	"hash":  true,
	"layer": true,
}

func keyValues(c tile.Coord, layer string) map[string]string {
	m := c.Values()
	m["hash"] = tileHash(c, layer)
	m["layer"] = layer
	return m
}

// tileHash spreads keys across prefixes. Layered keys hash with the layer and
// a leading slash, unlayered ones without.
func tileHash(c tile.Coord, layer string) string {
	toHash := c.FileName()
	if layer != "" {
		toHash = fmt.Sprintf("/%s/%s", layer, toHash)
	}

	hash := md5.Sum([]byte(toHash))

	return fmt.Sprintf("%x", hash)[0:5]
}
