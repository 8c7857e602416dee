package cache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

const (
	metaSuffix = ".meta.json"
	blobSuffix = ".bin"
)

// entryMeta is the sidecar written next to every blob. Expiry is decided
// from the sidecar alone so expired blobs are never read.
type entryMeta struct {
	Key         string    `json:"key"`
	CreatedAt   time.Time `json:"created_at"`
	TTLSeconds  float64   `json:"ttl_seconds"`
	AccessCount int64     `json:"access_count"`
	LastAccess  time.Time `json:"last_access"`
	Size        int       `json:"size"`
	ContentHash string    `json:"content_hash"`
	Codec       string    `json:"codec"`
}

func (m entryMeta) ttl() time.Duration {
	return time.Duration(m.TTLSeconds * float64(time.Second))
}

type diskCounters struct {
	hits, misses, writes, expired, errors atomic.Int64
}

// Disk is the persistent cache tier. Entries live under
// <root>/<cache type>/<hash>.meta.json and <hash>.bin, the blob being a gob
// payload compressed with the configured codec. Every I/O failure is counted
// and treated as a miss or a no-op.
type Disk struct {
	root     string
	codec    Codec
	now      Clock
	ttls     map[domain.CacheType]time.Duration
	counters map[domain.CacheType]*diskCounters
}

// NewDisk opens (creating if needed) a disk cache rooted at root with one
// partition per persistent cache type.
func NewDisk(root string, codec Codec, ttls map[domain.CacheType]time.Duration, opts ...Option) (*Disk, error) {
	if codec == nil {
		codec = zstdCodec{}
	}
	o := buildOptions(opts)
	d := &Disk{
		root:     root,
		codec:    codec,
		now:      o.now,
		ttls:     make(map[domain.CacheType]time.Duration),
		counters: make(map[domain.CacheType]*diskCounters),
	}
	for _, typ := range domain.PersistentCacheTypes() {
		if err := os.MkdirAll(filepath.Join(root, string(typ)), 0o755); err != nil {
			return nil, fmt.Errorf("cache: create partition %s: %w", typ, err)
		}
		d.ttls[typ] = ttls[typ]
		d.counters[typ] = &diskCounters{}
	}
	return d, nil
}

// Root returns the cache directory.
func (d *Disk) Root() string {
	return d.root
}

func (d *Disk) paths(typ domain.CacheType, key string) (meta, blob string) {
	base := filepath.Join(d.root, string(typ), domain.HashText(key))
	return base + metaSuffix, base + blobSuffix
}

func (d *Disk) counter(typ domain.CacheType) *diskCounters {
	if c, ok := d.counters[typ]; ok {
		return c
	}
	return &diskCounters{}
}

func (d *Disk) get(typ domain.CacheType, key string, out any) bool {
	c := d.counter(typ)
	metaPath, blobPath := d.paths(typ, key)

	meta, err := readMeta(metaPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.errors.Add(1)
			logger.Debug("cache: %s: unreadable metadata for %s: %v", typ, key, err)
			removeEntry(metaPath, blobPath)
		}
		c.misses.Add(1)
		return false
	}

	now := d.now()
	if expired(now, meta.CreatedAt, meta.ttl()) {
		removeEntry(metaPath, blobPath)
		c.expired.Add(1)
		c.misses.Add(1)
		return false
	}

	payload, err := d.readBlob(blobPath, meta)
	if err == nil {
		err = gob.NewDecoder(bytes.NewReader(payload)).Decode(out)
	}
	if err != nil {
		c.errors.Add(1)
		c.misses.Add(1)
		logger.Debug("cache: %s: discarding entry for %s: %v", typ, key, err)
		removeEntry(metaPath, blobPath)
		return false
	}

	meta.AccessCount++
	meta.LastAccess = now
	if err := writeMeta(metaPath, meta); err != nil {
		c.errors.Add(1)
	}
	c.hits.Add(1)
	return true
}

func (d *Disk) readBlob(path string, meta entryMeta) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	codec, err := CodecByName(meta.Codec)
	if err != nil {
		return nil, err
	}
	payload, err := codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if domain.HashBytes(payload) != meta.ContentHash {
		return nil, errors.New("content hash mismatch")
	}
	return payload, nil
}

func (d *Disk) put(typ domain.CacheType, key string, value any, ttl time.Duration) {
	c := d.counter(typ)
	if ttl <= 0 {
		ttl = d.ttls[typ]
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		c.errors.Add(1)
		logger.Debug("cache: %s: encode %s: %v", typ, key, err)
		return
	}
	payload := buf.Bytes()
	blob, err := d.codec.Encode(payload)
	if err != nil {
		c.errors.Add(1)
		return
	}

	metaPath, blobPath := d.paths(typ, key)
	now := d.now()
	meta := entryMeta{
		Key:         key,
		CreatedAt:   now,
		TTLSeconds:  ttl.Seconds(),
		LastAccess:  now,
		Size:        len(blob),
		ContentHash: domain.HashBytes(payload),
		Codec:       d.codec.Name(),
	}
	// Blob first: a reader that finds the sidecar always finds its blob.
	if err := writeFileAtomic(blobPath, blob); err != nil {
		c.errors.Add(1)
		logger.Debug("cache: %s: write %s: %v", typ, key, err)
		return
	}
	if err := writeMeta(metaPath, meta); err != nil {
		c.errors.Add(1)
		_ = os.Remove(blobPath)
		return
	}
	c.writes.Add(1)
}

// each calls fn for every sidecar in a partition.
func (d *Disk) each(typ domain.CacheType, fn func(metaPath string, meta entryMeta, err error)) {
	entries, err := os.ReadDir(filepath.Join(d.root, string(typ)))
	if err != nil {
		d.counter(typ).errors.Add(1)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		path := filepath.Join(d.root, string(typ), e.Name())
		meta, err := readMeta(path)
		fn(path, meta, err)
	}
}

func blobFor(metaPath string) string {
	return strings.TrimSuffix(metaPath, metaSuffix) + blobSuffix
}

func (d *Disk) invalidate(typ domain.CacheType, scope string) int {
	n := 0
	d.each(typ, func(metaPath string, meta entryMeta, err error) {
		if err != nil || scope == "" || strings.HasPrefix(meta.Key, scope) {
			removeEntry(metaPath, blobFor(metaPath))
			if err == nil {
				n++
			}
		}
	})
	return n
}

// Sweep deletes every expired entry in every partition and returns how many were removed.
func (d *Disk) Sweep() int {
	now := d.now()
	n := 0
	for _, typ := range domain.PersistentCacheTypes() {
		c := d.counter(typ)
		d.each(typ, func(metaPath string, meta entryMeta, err error) {
			if err != nil {
				c.errors.Add(1)
				removeEntry(metaPath, blobFor(metaPath))
				return
			}
			if expired(now, meta.CreatedAt, meta.ttl()) {
				removeEntry(metaPath, blobFor(metaPath))
				c.expired.Add(1)
				n++
			}
		})
	}
	return n
}

func (d *Disk) stats(typ domain.CacheType) domain.CacheStats {
	c := d.counter(typ)
	s := domain.CacheStats{
		Name:   string(typ),
		Tier:   "disk",
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Writes: c.writes.Load(),
		TTL:    d.ttls[typ],
	}
	d.each(typ, func(_ string, meta entryMeta, err error) {
		if err == nil {
			s.Entries++
			s.Bytes += int64(meta.Size)
		}
	})
	s.Expired = c.expired.Load()
	s.Errors = c.errors.Load()
	return s
}

func readMeta(path string) (entryMeta, error) {
	var meta entryMeta
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, err
	}
	return meta, nil
}

func writeMeta(path string, meta entryMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func removeEntry(metaPath, blobPath string) {
	_ = os.Remove(metaPath)
	_ = os.Remove(blobPath)
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Partition is a typed view of one disk partition. It implements driven.Cache.
type Partition[V any] struct {
	disk *Disk
	typ  domain.CacheType
}

var _ driven.Cache[string] = (*Partition[string])(nil)

// NewPartition returns the typed view of typ in d.
func NewPartition[V any](d *Disk, typ domain.CacheType) *Partition[V] {
	return &Partition[V]{disk: d, typ: typ}
}

// Get returns the stored value for key if present, intact and not expired.
func (p *Partition[V]) Get(key string) (V, bool) {
	var v V
	if !p.disk.get(p.typ, key, &v) {
		var zero V
		return zero, false
	}
	return v, true
}

// Put stores value under key. A zero ttl uses the partition default.
func (p *Partition[V]) Put(key string, value V, ttl time.Duration) {
	p.disk.put(p.typ, key, value, ttl)
}

// Invalidate removes entries whose key starts with scope.
func (p *Partition[V]) Invalidate(scope string) int {
	return p.disk.invalidate(p.typ, scope)
}

// Stats returns the partition counters.
func (p *Partition[V]) Stats() domain.CacheStats {
	return p.disk.stats(p.typ)
}

// Noop is a cache that stores nothing. It stands in for the disk tier when
// persistence is disabled.
type Noop[V any] struct {
	Name string
}

var _ driven.Cache[string] = Noop[string]{}

// Get always misses.
func (Noop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}

// Put discards the value.
func (Noop[V]) Put(string, V, time.Duration) {}

// Invalidate removes nothing.
func (Noop[V]) Invalidate(string) int { return 0 }

// Stats reports an empty disabled tier.
func (n Noop[V]) Stats() domain.CacheStats {
	return domain.CacheStats{Name: n.Name, Tier: "disabled"}
}
