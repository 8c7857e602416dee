package hnsw

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Artifact file names.
const (
	IndexFile     = "index.gob"
	ChunksFile    = "chunks.gob"
	MetadataFile  = "metadata.gob"
	DocumentsFile = "documents.json"
)

const (
	crcSize   = 4
	epochSize = 8
)

var errChecksum = errors.New("hnsw: index checksum mismatch")

// Every row artifact records the layout epoch it was written under. Rows are
// append-only within an epoch, so artifacts of one epoch share a row prefix.
type chunksState struct {
	Epoch uint64
	Texts []string
}

type metadataState struct {
	Epoch      uint64
	Rows       []domain.ChunkMetadata
	Tombstones []byte
}

func (s *Store) path(name string) string {
	return filepath.Join(s.opts.Dir, name)
}

// persist saves the store and logs failures. The in-memory state stays
// authoritative and the next successful write catches the disk up.
func (s *Store) persist() {
	if s.opts.Dir == "" {
		return
	}
	if err := s.save(); err != nil {
		logger.Warn("hnsw: failed to persist store: %v", err)
	}
}

func (s *Store) save() error {
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("hnsw: create store dir: %w", err)
	}

	g := s.graph
	if g == nil {
		g = s.newGraph(0)
	}
	index, err := encodeIndex(g, s.epoch)
	if err != nil {
		return err
	}

	var chunks bytes.Buffer
	if err := gob.NewEncoder(&chunks).Encode(chunksState{Epoch: s.epoch, Texts: s.texts}); err != nil {
		return fmt.Errorf("hnsw: encode chunks: %w", err)
	}

	tomb, err := s.tombstones.ToBytes()
	if err != nil {
		return fmt.Errorf("hnsw: encode tombstones: %w", err)
	}
	var meta bytes.Buffer
	if err := gob.NewEncoder(&meta).Encode(metadataState{Epoch: s.epoch, Rows: s.meta, Tombstones: tomb}); err != nil {
		return fmt.Errorf("hnsw: encode metadata: %w", err)
	}

	docs, err := json.MarshalIndent(s.sortedDocs(), "", "  ")
	if err != nil {
		return fmt.Errorf("hnsw: encode documents: %w", err)
	}

	// The index goes last: a reader that finds it finds rows at least as new.
	for _, f := range []struct {
		name string
		data []byte
	}{
		{ChunksFile, chunks.Bytes()},
		{MetadataFile, meta.Bytes()},
		{DocumentsFile, docs},
		{IndexFile, index},
	} {
		if err := writeFileAtomic(s.path(f.name), f.data); err != nil {
			return fmt.Errorf("hnsw: write %s: %w", f.name, err)
		}
	}
	return nil
}

func (s *Store) sortedDocs() []domain.DocumentRecord {
	out := make([]domain.DocumentRecord, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sortRecords(out)
	return out
}

// encodeIndex lays out the index file as epoch, zstd graph, crc32 of both.
func encodeIndex(g *graph, epoch uint64) ([]byte, error) {
	raw, err := g.GobEncode()
	if err != nil {
		return nil, fmt.Errorf("hnsw: encode index: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()
	out := binary.LittleEndian.AppendUint64(nil, epoch)
	out = enc.EncodeAll(raw, out)
	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out)), nil
}

func decodeIndex(data []byte) (*graph, uint64, error) {
	if len(data) < epochSize+crcSize {
		return nil, 0, errChecksum
	}
	body, trailer := data[:len(data)-crcSize], data[len(data)-crcSize:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, 0, errChecksum
	}
	epoch := binary.LittleEndian.Uint64(body[:epochSize])
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(body[epochSize:], nil)
	if err != nil {
		return nil, 0, fmt.Errorf("hnsw: decompress index: %w", err)
	}
	g := &graph{}
	if err := g.GobDecode(raw); err != nil {
		return nil, 0, err
	}
	return g, epoch, nil
}

// load restores the store from disk. The index is written last, so after an
// interrupted save the row artifacts may run ahead of it; they are cut back
// to the index's rows and the registry is rebuilt from what remains.
// Unreadable artifacts, or row artifacts from a different epoch, are logged
// and the store starts empty.
func (s *Store) load() error {
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrVectorIndexUnavailable, err)
	}

	data, err := os.ReadFile(s.path(IndexFile))
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("hnsw: no index in %s, starting empty", s.opts.Dir)
		return nil
	}
	if err != nil {
		logger.Warn("hnsw: cannot read index, starting empty: %v", err)
		return nil
	}
	g, epoch, err := decodeIndex(data)
	if err != nil {
		logger.Warn("hnsw: corrupt index, starting empty: %v", err)
		return nil
	}

	var chunks chunksState
	if err := readGob(s.path(ChunksFile), &chunks); err != nil {
		logger.Warn("hnsw: cannot read chunks, starting empty: %v", err)
		return nil
	}
	texts := chunks.Texts
	var meta metadataState
	if err := readGob(s.path(MetadataFile), &meta); err != nil {
		logger.Warn("hnsw: cannot read metadata, starting empty: %v", err)
		return nil
	}
	if chunks.Epoch != epoch || meta.Epoch != epoch {
		logger.Warn("hnsw: artifact epochs disagree (index %d, chunks %d, metadata %d), starting empty",
			epoch, chunks.Epoch, meta.Epoch)
		return nil
	}
	n := g.len()
	if len(texts) < n || len(meta.Rows) < n {
		logger.Warn("hnsw: index ahead of row artifacts (index %d, chunks %d, metadata %d), starting empty",
			n, len(texts), len(meta.Rows))
		return nil
	}
	rows := meta.Rows
	recovered := len(texts) > n || len(rows) > n
	if recovered {
		logger.Warn("hnsw: interrupted save detected, keeping the %d rows covered by the index (chunks %d, metadata %d)",
			n, len(texts), len(rows))
		texts, rows = texts[:n], rows[:n]
	}

	tomb := roaring.New()
	if len(meta.Tombstones) > 0 {
		if _, err := tomb.FromBuffer(meta.Tombstones); err != nil {
			logger.Warn("hnsw: corrupt tombstones, starting empty: %v", err)
			return nil
		}
		tomb = tomb.Clone()
	}
	if recovered && !tomb.IsEmpty() {
		tomb.RemoveRange(uint64(n), uint64(tomb.Maximum())+1)
	}

	docs := registryFromRows(rows, tomb)
	stored, err := readDocuments(s.path(DocumentsFile))
	if err != nil {
		logger.Warn("hnsw: cannot read document registry, rebuilding from metadata: %v", err)
	} else {
		docs = reconcileRegistry(docs, stored)
	}

	if n > 0 {
		s.graph = g
	}
	s.epoch = epoch
	s.texts = texts
	s.meta = rows
	s.tombstones = tomb
	s.docs = docs
	s.stale = !tomb.IsEmpty()
	s.loaded = true
	logger.Debug("hnsw: loaded %d rows, %d documents from %s", len(texts), len(docs), s.opts.Dir)

	if recovered {
		if err := s.save(); err != nil {
			logger.Warn("hnsw: failed to rewrite recovered store: %v", err)
		}
	}
	return nil
}

func readGob(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

func readDocuments(path string) (map[string]domain.DocumentRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []domain.DocumentRecord
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	docs := make(map[string]domain.DocumentRecord, len(list))
	for _, d := range list {
		docs[d.ID] = d
	}
	return docs, nil
}

// registryFromRows rebuilds minimal registry records from live chunk metadata.
func registryFromRows(rows []domain.ChunkMetadata, tomb *roaring.Bitmap) map[string]domain.DocumentRecord {
	docs := make(map[string]domain.DocumentRecord)
	for i, m := range rows {
		if tomb.Contains(uint32(i)) {
			continue
		}
		d := docs[m.DocID]
		d.ID = m.DocID
		d.Type = domain.DocumentTypeSemanticSearch
		d.ChunkCount++
		d.TotalTokens += m.TokenCount
		if m.Page > d.Pages {
			d.Pages = m.Page
		}
		docs[m.DocID] = d
	}
	return docs
}

// reconcileRegistry keeps the stored record for every rebuilt document whose
// chunk count still matches, and the rebuilt record otherwise.
func reconcileRegistry(rebuilt, stored map[string]domain.DocumentRecord) map[string]domain.DocumentRecord {
	for id, d := range rebuilt {
		if rec, ok := stored[id]; ok && rec.ChunkCount == d.ChunkCount {
			rebuilt[id] = rec
		}
	}
	return rebuilt
}

func (s *Store) removeArtifacts() error {
	if s.opts.Dir == "" {
		return nil
	}
	var errs []error
	for _, name := range []string{IndexFile, ChunksFile, MetadataFile, DocumentsFile} {
		if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
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
