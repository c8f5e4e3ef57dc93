// Package content implements stow's artifact store: the layer above
// pkg/storage that turns Blob rows (literal or delta-encoded) into
// whole-artifact bytes, and caches the result.
//
// The cache is grounded on original_source/src/cache.c's fsl_acache:
// an age-ordered slice of resident artifacts, evicted oldest-first
// once either the byte-size limit or the entry-count limit is
// exceeded, plus two small "have I already looked this up" bags
// (missing/available) that let repeated availability checks on the
// same delta chain short-circuit instead of re-walking it.
package content

import (
	"github.com/cuemby/stow/pkg/bag"
	"github.com/cuemby/stow/pkg/buffer"
	"github.com/cuemby/stow/pkg/delta"
	"github.com/cuemby/stow/pkg/errs"
	"github.com/cuemby/stow/pkg/metrics"
	"github.com/cuemby/stow/pkg/storage"
)

type cacheLine struct {
	rid     int64
	age     int64
	content []byte
}

// Store is stow's artifact store: content-addressed Put/Get over a
// storage.Store, with delta compression and a resident-artifact cache.
type Store struct {
	db Backend

	sizeLimit  int64
	entryLimit int

	// verifyChecksum gates whether Get's delta.Apply calls validate a
	// delta's trailing checksum command. Defaults on; see
	// config.Config.VerifyDeltaChecksum.
	verifyChecksum bool

	lines   []cacheLine
	nextAge int64
	szTotal int64
	inCache bag.Bag

	missing   bag.Bag
	available bag.Bag
}

// Backend is the subset of storage.Store the content layer needs. It
// is satisfied by *storage.BoltStore; tests may supply a fake.
type Backend interface {
	PutBlob(b *storage.Blob) error
	GetBlob(rid int64) (*storage.Blob, error)
	GetBlobByHash(hash string) (*storage.Blob, error)
	DeleteBlob(rid int64) error
}

// New builds an artifact store over db, bounding the resident cache to
// sizeLimit bytes and entryLimit entries. Delta checksum verification
// defaults on; see SetVerifyChecksum.
func New(db Backend, sizeLimit int64, entryLimit int) *Store {
	return &Store{db: db, sizeLimit: sizeLimit, entryLimit: entryLimit, verifyChecksum: true}
}

// SetVerifyChecksum toggles whether Get validates a delta's trailing
// checksum command while undeltifying. Callers that already trust
// their repository's delta chain (a hot read path, say) can disable
// this for the faster, unverified apply.
func (s *Store) SetVerifyChecksum(verify bool) {
	s.verifyChecksum = verify
}

// expireOldest evicts the least-recently-inserted resident line,
// reporting whether anything was evicted. Mirrors
// fsl_acache_expire_oldest's linear scan for the minimum age.
func (s *Store) expireOldest() bool {
	if len(s.lines) == 0 {
		return false
	}
	minAge := s.nextAge
	min := -1
	for i, l := range s.lines {
		if l.age < minAge {
			minAge = l.age
			min = i
		}
	}
	if min < 0 {
		return false
	}
	s.inCache.Remove(s.lines[min].rid)
	s.szTotal -= int64(cap(s.lines[min].content))
	last := len(s.lines) - 1
	s.lines[min] = s.lines[last]
	s.lines = s.lines[:last]
	return true
}

// insertCache adds rid's decoded bytes to the resident cache,
// evicting older entries first if the store is over its limits.
func (s *Store) insertCache(rid int64, decoded []byte) {
	if s.entryLimit == 0 || s.sizeLimit == 0 {
		return
	}
	for len(s.lines) >= s.entryLimit || s.szTotal > s.sizeLimit {
		before := s.szTotal
		if !s.expireOldest() {
			break
		}
		if s.szTotal >= before {
			break
		}
	}
	if len(s.lines) >= s.entryLimit {
		return
	}
	s.lines = append(s.lines, cacheLine{rid: rid, age: s.nextAge, content: decoded})
	s.nextAge++
	s.szTotal += int64(cap(decoded))
	s.inCache.Insert(rid)
	metrics.CacheSize.Set(float64(len(s.lines)))
}

func (s *Store) lookupCache(rid int64) ([]byte, bool) {
	if !s.inCache.Contains(rid) {
		metrics.CacheMisses.Inc()
		return nil, false
	}
	for _, l := range s.lines {
		if l.rid == rid {
			metrics.CacheHits.Inc()
			return l.content, true
		}
	}
	metrics.CacheMisses.Inc()
	return nil, false
}

// Put stores artifact bytes as a new blob under the caller-supplied rid.
// If srcRID is non-zero, the artifact is stored as a delta against that
// blob's decoded content rather than literally.
func (s *Store) Put(rid int64, artifact []byte, hash string, srcRID int64) error {
	var wire []byte
	isDelta := false
	if srcRID != 0 {
		srcBytes, err := s.Get(srcRID)
		if err == nil {
			wire = delta.Create(srcBytes, artifact)
			isDelta = true
			metrics.DeltaCompressionRatio.Observe(float64(len(wire)) / float64(max(len(artifact), 1)))
		}
	}
	if wire == nil {
		wire = artifact
	}
	compressed, err := buffer.Compress(wire)
	if err != nil {
		return errs.Wrap(errs.KindIO, err, "compress blob %d", rid)
	}
	b := &storage.Blob{
		RID:     rid,
		Hash:    hash,
		Size:    int64(len(artifact)),
		SrcRID:  srcRID,
		IsDelta: isDelta,
		Content: compressed,
	}
	if !isDelta {
		b.SrcRID = 0
	}
	if err := s.db.PutBlob(b); err != nil {
		return err
	}
	s.available.Insert(rid)
	s.missing.Remove(rid)
	s.insertCache(rid, artifact)
	return nil
}

// deltaStep is one link of a delta chain walked by Get: the rid it
// came from and its decompressed (but not yet undeltified) payload.
type deltaStep struct {
	rid     int64
	payload []byte
}

// Get returns the fully decoded artifact bytes for rid, walking the
// delta-source chain iteratively (never recursively — a chain can run
// deeper than the call stack should) and undeltifying back down once
// a literal base is found. Mirrors Available's loop-guarded walk.
func (s *Store) Get(rid int64) ([]byte, error) {
	const loopLimit = 10000000

	var chain []deltaStep
	var base []byte
	cur := rid
	for i := 0; i < loopLimit; i++ {
		if cached, ok := s.lookupCache(cur); ok {
			base = make([]byte, len(cached))
			copy(base, cached)
			break
		}
		b, err := s.db.GetBlob(cur)
		if err != nil {
			return nil, err
		}
		raw, err := buffer.Decompress(b.Content)
		if err != nil {
			return nil, errs.Wrap(errs.KindIO, err, "decompress blob %d", cur)
		}
		if !b.IsDelta {
			s.insertCache(cur, raw)
			base = raw
			break
		}
		chain = append(chain, deltaStep{rid: cur, payload: raw})
		cur = b.SrcRID
	}
	if base == nil {
		return nil, errs.New(errs.KindConsistency, "delta-loop in repository")
	}

	out := base
	for i := len(chain) - 1; i >= 0; i-- {
		var applied []byte
		var err error
		if s.verifyChecksum {
			applied, err = delta.Apply(out, chain[i].payload)
		} else {
			applied, err = delta.ApplyUnchecked(out, chain[i].payload)
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindMalformedArtifact, err, "apply delta for blob %d", chain[i].rid)
		}
		out = applied
		s.insertCache(chain[i].rid, out)
	}
	return out, nil
}

// Available reports whether rid's full content can be reconstructed,
// following the delta-source chain. It mirrors
// fsl_acache_check_available's iterative walk and its two-bag memo,
// including its historical loop guard against a corrupt delta cycle.
func (s *Store) Available(rid int64) (bool, error) {
	const loopLimit = 10000000
	for depth := 0; depth < loopLimit; depth++ {
		if s.missing.Contains(rid) {
			return false, nil
		}
		if s.available.Contains(rid) {
			return true, nil
		}
		b, err := s.db.GetBlob(rid)
		if err != nil {
			s.missing.Insert(rid)
			return false, nil
		}
		if b.SrcRID == 0 {
			s.available.Insert(rid)
			return true, nil
		}
		rid = b.SrcRID
	}
	return false, errs.New(errs.KindConsistency, "delta-loop in repository")
}

// GetByHash resolves hash to its artifact bytes via the blob table's
// hash index.
func (s *Store) GetByHash(hash string) ([]byte, error) {
	b, err := s.db.GetBlobByHash(hash)
	if err != nil {
		return nil, err
	}
	return s.Get(b.RID)
}
