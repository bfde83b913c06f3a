// Package directory resolves a C-MOVE MoveDestination AE title to the
// (host, port) a requestor's association runtime dials for its C-STORE
// sub-operations. spec.md §4.7/§6.2 leaves this resolution to an external
// collaborator; this package supplies one, grounded on the cache backend
// pairing (Redis-backed with an in-memory fallback) already present in
// OtchereDev-ris-dicom-connector's internal/cache package.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RemoteAE names a peer by AE title, host, and port.
type RemoteAE struct {
	AETitle string `json:"ae_title"`
	Host    string `json:"host"`
	Port    int    `json:"port"`
}

// ErrNotFound is returned by Resolve when aeTitle has no registered entry.
var ErrNotFound = fmt.Errorf("directory: AE title not found")

// Directory resolves an AE title to its network location for C-MOVE
// destination dispatch.
type Directory interface {
	Resolve(ctx context.Context, aeTitle string) (RemoteAE, error)
	Register(ctx context.Context, entry RemoteAE) error
}

// MemoryDirectory is an in-process Directory, suitable for tests and
// single-process deployments that configure their move destinations at
// startup.
type MemoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]RemoteAE
}

// NewMemoryDirectory builds an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{entries: make(map[string]RemoteAE)}
}

func (d *MemoryDirectory) Resolve(_ context.Context, aeTitle string) (RemoteAE, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	entry, ok := d.entries[aeTitle]
	if !ok {
		return RemoteAE{}, ErrNotFound
	}
	return entry, nil
}

func (d *MemoryDirectory) Register(_ context.Context, entry RemoteAE) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[entry.AETitle] = entry
	return nil
}

// RedisDirectory stores AE title -> RemoteAE mappings in Redis, shared
// across AE processes, keyed under the fixed prefix "netdicom:ae:".
type RedisDirectory struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisDirectory dials addr and verifies connectivity with a short Ping,
// mirroring cache.NewRedisCache's connect-and-verify pattern.
func NewRedisDirectory(addr, password string, db int) (*RedisDirectory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("directory: connect to redis: %w", err)
	}
	return &RedisDirectory{client: client, prefix: "netdicom:ae:"}, nil
}

func (d *RedisDirectory) key(aeTitle string) string {
	return d.prefix + aeTitle
}

func (d *RedisDirectory) Resolve(ctx context.Context, aeTitle string) (RemoteAE, error) {
	raw, err := d.client.Get(ctx, d.key(aeTitle)).Bytes()
	if err == redis.Nil {
		return RemoteAE{}, ErrNotFound
	}
	if err != nil {
		return RemoteAE{}, fmt.Errorf("directory: get %s: %w", aeTitle, err)
	}
	var entry RemoteAE
	if err := json.Unmarshal(raw, &entry); err != nil {
		return RemoteAE{}, fmt.Errorf("directory: decode %s: %w", aeTitle, err)
	}
	return entry, nil
}

func (d *RedisDirectory) Register(ctx context.Context, entry RemoteAE) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("directory: encode %s: %w", entry.AETitle, err)
	}
	if err := d.client.Set(ctx, d.key(entry.AETitle), raw, d.ttl).Err(); err != nil {
		return fmt.Errorf("directory: set %s: %w", entry.AETitle, err)
	}
	return nil
}

// Close releases the underlying Redis connection pool.
func (d *RedisDirectory) Close() error {
	return d.client.Close()
}
