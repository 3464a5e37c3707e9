package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/ssargent/riskmap/pkg/codec"
	"github.com/ssargent/riskmap/pkg/rkmap"
)

var (
	// ErrNotFound is returned when no revision matches the request.
	ErrNotFound = errors.New("revision not found")
	// ErrCorruptBlob is returned when stored data no longer decodes.
	ErrCorruptBlob = errors.New("stored blob is corrupt")
	// ErrClosed is returned by operations on a closed archive.
	ErrClosed = errors.New("archive is closed")
)

// Archive is a versioned store of encoded maps backed by pebble. Every
// accepted blob is verified with the codec before it is written, and again
// whenever it is loaded.
type Archive struct {
	db      *pebble.DB
	decoder *codec.Decoder

	// mu serialises Put so the dedupe check and the write are atomic.
	// Reads hold it shared so Close waits for them.
	mu     sync.RWMutex
	closed bool
}

// Option configures an Archive.
type Option func(*Archive)

// WithDecoder sets the decoder used to verify blobs.
func WithDecoder(d *codec.Decoder) Option {
	return func(a *Archive) {
		a.decoder = d
	}
}

// Open opens or creates an archive in dir.
func Open(dir string, opts ...Option) (*Archive, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive at %s: %w", dir, err)
	}
	a := &Archive{db: db, decoder: codec.NewDecoder()}
	for _, opt := range opts {
		opt(a)
	}
	Logger().Info("archive opened", zap.String("dir", dir))
	return a, nil
}

// Close releases the underlying database.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.db.Close()
}

// Put verifies and stores an encoded map. When the blob is identical to the
// latest revision of its codename, that revision is returned with
// Deduplicated set and nothing is written.
func (a *Archive) Put(ctx context.Context, blob []byte) (*Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := a.decoder.DecodeBytes(blob)
	if err != nil {
		return nil, err
	}
	fingerprint := Fingerprint(blob)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}

	latest, err := a.latest(m.Codename())
	switch {
	case err == nil && latest.Fingerprint == fingerprint:
		latest.Deduplicated = true
		Logger().Debug("blob deduplicated",
			zap.String("codename", m.Codename()),
			zap.String("revision", latest.ID))
		return latest, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	id := ksuid.New()
	if latest != nil {
		// Keep revision keys strictly increasing per codename even when
		// several land within the same second.
		prev, err := ksuid.Parse(latest.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: revision id %q: %v", ErrCorruptBlob, latest.ID, err)
		}
		if ksuid.Compare(id, prev) <= 0 {
			id = prev.Next()
		}
	}
	rev := &Revision{
		ID:          id.String(),
		Codename:    m.Codename(),
		DisplayName: m.DisplayName(),
		Author:      m.Author(),
		Fingerprint: fingerprint,
		Size:        int64(len(blob)),
		Territories: len(m.Territories()),
		Borders:     len(m.Borders()),
		CreatedAt:   id.Time().UTC(),
	}
	meta, err := marshalRevision(rev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode revision: %w", err)
	}

	batch := a.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(blobKey(rev.ID), blob, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(revKey(rev.Codename, rev.ID), meta, nil); err != nil {
		return nil, err
	}
	if err := batch.Set(idKey(rev.ID), []byte(rev.Codename), nil); err != nil {
		return nil, err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return nil, fmt.Errorf("failed to commit revision: %w", err)
	}

	Logger().Info("revision stored",
		zap.String("codename", rev.Codename),
		zap.String("revision", rev.ID),
		zap.Int64("size", rev.Size))
	return rev, nil
}

// Get returns the revision with the given id.
func (a *Archive) Get(ctx context.Context, id string) (*Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ksuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: invalid revision id %q", ErrNotFound, id)
	}
	if err := a.rlock(); err != nil {
		return nil, err
	}
	defer a.mu.RUnlock()

	codename, err := a.read(idKey(id))
	if err != nil {
		return nil, err
	}
	meta, err := a.read(revKey(string(codename), id))
	if err != nil {
		return nil, err
	}
	return unmarshalRevision(meta)
}

// Latest returns the newest revision of codename.
func (a *Archive) Latest(ctx context.Context, codename string) (*Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := a.rlock(); err != nil {
		return nil, err
	}
	defer a.mu.RUnlock()
	return a.latest(codename)
}

func (a *Archive) latest(codename string) (*Revision, error) {
	lower, upper := revBounds(codename)
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: codename %q", ErrNotFound, codename)
	}
	return unmarshalRevision(iter.Value())
}

// History returns every revision of codename, oldest first.
func (a *Archive) History(ctx context.Context, codename string) ([]*Revision, error) {
	if err := a.rlock(); err != nil {
		return nil, err
	}
	defer a.mu.RUnlock()

	lower, upper := revBounds(codename)
	revs, err := a.scan(ctx, lower, upper, nil)
	if err != nil {
		return nil, err
	}
	if len(revs) == 0 {
		return nil, fmt.Errorf("%w: codename %q", ErrNotFound, codename)
	}
	return revs, nil
}

// List returns the latest revision of every codename, ordered by codename.
func (a *Archive) List(ctx context.Context) ([]*Revision, error) {
	if err := a.rlock(); err != nil {
		return nil, err
	}
	defer a.mu.RUnlock()

	var out []*Revision
	_, err := a.scan(ctx, []byte(revPrefix), prefixEnd([]byte(revPrefix)), func(rev *Revision) {
		if n := len(out); n > 0 && out[n-1].Codename == rev.Codename {
			out[n-1] = rev
			return
		}
		out = append(out, rev)
	})
	return out, err
}

// scan decodes the revisions in [lower, upper). With a visit function the
// revisions are handed to it instead of being collected.
func (a *Archive) scan(ctx context.Context, lower, upper []byte, visit func(*Revision)) ([]*Revision, error) {
	iter, err := a.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []*Revision
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rev, err := unmarshalRevision(iter.Value())
		if err != nil {
			return nil, err
		}
		if visit != nil {
			visit(rev)
			continue
		}
		out = append(out, rev)
	}
	return out, iter.Error()
}

// Blob returns the encoded bytes of a revision after verifying them.
func (a *Archive) Blob(ctx context.Context, id string) ([]byte, error) {
	blob, _, err := a.load(ctx, id)
	return blob, err
}

// Load returns the decoded map of a revision.
func (a *Archive) Load(ctx context.Context, id string) (*rkmap.Map, error) {
	_, m, err := a.load(ctx, id)
	return m, err
}

func (a *Archive) load(ctx context.Context, id string) ([]byte, *rkmap.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if _, err := ksuid.Parse(id); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid revision id %q", ErrNotFound, id)
	}
	if err := a.rlock(); err != nil {
		return nil, nil, err
	}
	blob, err := a.read(blobKey(id))
	a.mu.RUnlock()
	if err != nil {
		return nil, nil, err
	}
	m, err := a.decoder.DecodeBytes(blob)
	if err != nil {
		Logger().Error("stored blob failed verification",
			zap.String("revision", id), zap.Error(err))
		return nil, nil, fmt.Errorf("%w: revision %s: %v", ErrCorruptBlob, id, err)
	}
	return blob, m, nil
}

// rlock takes the read lock, or returns ErrClosed without holding it.
func (a *Archive) rlock() error {
	a.mu.RLock()
	if a.closed {
		a.mu.RUnlock()
		return ErrClosed
	}
	return nil
}

// read returns a copy of the value at key.
func (a *Archive) read(key []byte) ([]byte, error) {
	data, closer, err := a.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

var _ io.Closer = (*Archive)(nil)
