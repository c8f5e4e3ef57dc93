package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/stow/pkg/errs"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlob         = []byte("blob")
	bucketBlobByHash   = []byte("blob_by_hash")
	bucketPlink        = []byte("plink")
	bucketPlinkByChild = []byte("plink_by_child")
	bucketPlinkByParent = []byte("plink_by_parent")
	bucketFilename     = []byte("filename")
	bucketFilenameByName = []byte("filename_by_name")
	bucketMlink        = []byte("mlink")
	bucketMlinkByMID   = []byte("mlink_by_mid")
	bucketMlinkByFNID  = []byte("mlink_by_fnid")
	bucketTag          = []byte("tag")
	bucketTagByName    = []byte("tag_by_name")
	bucketTagxref      = []byte("tagxref")
	bucketTagxrefByRID = []byte("tagxref_by_rid")
	bucketTagxrefByTag = []byte("tagxref_by_tag")
	bucketEvent        = []byte("event")
	bucketLeaf         = []byte("leaf")
	bucketPrivate      = []byte("private")
	bucketUnsent       = []byte("unsent")
	bucketUnclustered  = []byte("unclustered")
	bucketTicket       = []byte("ticket")
	bucketTicketChange = []byte("ticketchng")
	bucketForumPost    = []byte("forumpost")
	bucketForumByThread = []byte("forumpost_by_thread")
)

var allBuckets = [][]byte{
	bucketBlob, bucketBlobByHash,
	bucketPlink, bucketPlinkByChild, bucketPlinkByParent,
	bucketFilename, bucketFilenameByName,
	bucketMlink, bucketMlinkByMID, bucketMlinkByFNID,
	bucketTag, bucketTagByName,
	bucketTagxref, bucketTagxrefByRID, bucketTagxrefByTag,
	bucketEvent,
	bucketLeaf, bucketPrivate, bucketUnsent, bucketUnclustered,
	bucketTicket, bucketTicketChange,
	bucketForumPost, bucketForumByThread,
}

// BoltStore implements Store on top of a single bbolt database file,
// one bucket per table plus small secondary-index buckets for the
// lookups stow needs often (hash, name, parent/child, thread).
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if absent) the bbolt-backed repository
// database under dataDir.
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "stow.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "open database at %s", dbPath)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindDB, err, "initialize buckets")
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

// NextRID allocates the next artifact RID using the blob bucket's
// built-in autoincrement sequence, the standard bbolt idiom for
// generating monotonically increasing integer keys.
func (s *BoltStore) NextRID() (int64, error) {
	var rid int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		seq, err := tx.Bucket(bucketBlob).NextSequence()
		if err != nil {
			return err
		}
		rid = int64(seq)
		return nil
	})
	if err != nil {
		return 0, errs.Wrap(errs.KindDB, err, "allocate next rid")
	}
	return rid, nil
}

func ridKey(rid int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(rid))
	return k
}

func keyToRID(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k))
}

// --- blob ---

func (s *BoltStore) PutBlob(b *Blob) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(b)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlob).Put(ridKey(b.RID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketBlobByHash).Put([]byte(b.Hash), ridKey(b.RID))
	})
}

func (s *BoltStore) GetBlob(rid int64) (*Blob, error) {
	var b Blob
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlob).Get(ridKey(rid))
		if data == nil {
			return errs.New(errs.KindNotFound, "blob rid %d not found", rid)
		}
		return json.Unmarshal(data, &b)
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *BoltStore) GetBlobByHash(hash string) (*Blob, error) {
	var rid int64
	err := s.db.View(func(tx *bolt.Tx) error {
		k := tx.Bucket(bucketBlobByHash).Get([]byte(hash))
		if k == nil {
			return errs.New(errs.KindNotFound, "blob hash %s not found", hash)
		}
		rid = keyToRID(k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetBlob(rid)
}

func (s *BoltStore) ListBlobs() ([]*Blob, error) {
	var out []*Blob
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlob).ForEach(func(_, v []byte) error {
			var b Blob
			if err := json.Unmarshal(v, &b); err != nil {
				return err
			}
			out = append(out, &b)
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) DeleteBlob(rid int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlob).Get(ridKey(rid))
		if data != nil {
			var b Blob
			if err := json.Unmarshal(data, &b); err == nil {
				tx.Bucket(bucketBlobByHash).Delete([]byte(b.Hash))
			}
		}
		return tx.Bucket(bucketBlob).Delete(ridKey(rid))
	})
}

// --- plink ---

func plinkKey(childRID, parentRID int64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(childRID))
	binary.BigEndian.PutUint64(k[8:], uint64(parentRID))
	return k
}

func (s *BoltStore) PutPlink(p *Plink) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		key := plinkKey(p.ChildRID, p.ParentRID)
		if err := tx.Bucket(bucketPlink).Put(key, data); err != nil {
			return err
		}
		if err := appendIndex(tx.Bucket(bucketPlinkByChild), ridKey(p.ChildRID), key); err != nil {
			return err
		}
		return appendIndex(tx.Bucket(bucketPlinkByParent), ridKey(p.ParentRID), key)
	})
}

func (s *BoltStore) ParentsOf(childRID int64) ([]*Plink, error) {
	return s.plinksByIndex(bucketPlinkByChild, ridKey(childRID))
}

func (s *BoltStore) ChildrenOf(parentRID int64) ([]*Plink, error) {
	return s.plinksByIndex(bucketPlinkByParent, ridKey(parentRID))
}

func (s *BoltStore) plinksByIndex(indexBucket, indexKey []byte) ([]*Plink, error) {
	var out []*Plink
	err := s.db.View(func(tx *bolt.Tx) error {
		keys, err := readIndex(tx.Bucket(indexBucket), indexKey)
		if err != nil {
			return err
		}
		pb := tx.Bucket(bucketPlink)
		for _, k := range keys {
			data := pb.Get(k)
			if data == nil {
				continue
			}
			var p Plink
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) ListPlinks() ([]*Plink, error) {
	var out []*Plink
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPlink).ForEach(func(_, v []byte) error {
			var p Plink
			if err := json.Unmarshal(v, &p); err != nil {
				return err
			}
			out = append(out, &p)
			return nil
		})
	})
	return out, err
}

// --- filename ---

func (s *BoltStore) PutFilename(f *Filename) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketFilename).Put(ridKey(f.FNID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketFilenameByName).Put([]byte(f.Name), ridKey(f.FNID))
	})
}

func (s *BoltStore) GetFilename(fnid int64) (*Filename, error) {
	var f Filename
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketFilename).Get(ridKey(fnid))
		if data == nil {
			return errs.New(errs.KindNotFound, "filename fnid %d not found", fnid)
		}
		return json.Unmarshal(data, &f)
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *BoltStore) FindFilename(name string) (*Filename, error) {
	var fnid int64
	err := s.db.View(func(tx *bolt.Tx) error {
		k := tx.Bucket(bucketFilenameByName).Get([]byte(name))
		if k == nil {
			return errs.New(errs.KindNotFound, "filename %s not found", name)
		}
		fnid = keyToRID(k)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetFilename(fnid)
}

// --- mlink ---

func mlinkKey(mid, fnid int64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(mid))
	binary.BigEndian.PutUint64(k[8:], uint64(fnid))
	return k
}

func (s *BoltStore) PutMlink(m *Mlink) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		key := mlinkKey(m.MID, m.FNID)
		if err := tx.Bucket(bucketMlink).Put(key, data); err != nil {
			return err
		}
		if err := appendIndex(tx.Bucket(bucketMlinkByMID), ridKey(m.MID), key); err != nil {
			return err
		}
		return appendIndex(tx.Bucket(bucketMlinkByFNID), ridKey(m.FNID), key)
	})
}

func (s *BoltStore) MlinksForManifest(mid int64) ([]*Mlink, error) {
	return s.mlinksByIndex(bucketMlinkByMID, ridKey(mid))
}

func (s *BoltStore) MlinksForFilename(fnid int64) ([]*Mlink, error) {
	return s.mlinksByIndex(bucketMlinkByFNID, ridKey(fnid))
}

func (s *BoltStore) mlinksByIndex(indexBucket, indexKey []byte) ([]*Mlink, error) {
	var out []*Mlink
	err := s.db.View(func(tx *bolt.Tx) error {
		keys, err := readIndex(tx.Bucket(indexBucket), indexKey)
		if err != nil {
			return err
		}
		mb := tx.Bucket(bucketMlink)
		for _, k := range keys {
			data := mb.Get(k)
			if data == nil {
				continue
			}
			var m Mlink
			if err := json.Unmarshal(data, &m); err != nil {
				return err
			}
			out = append(out, &m)
		}
		return nil
	})
	return out, err
}

// --- tag / tagxref ---

func (s *BoltStore) PutTag(t *Tag) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketTag).Put(ridKey(t.TagID), data); err != nil {
			return err
		}
		return tx.Bucket(bucketTagByName).Put([]byte(t.Name), ridKey(t.TagID))
	})
}

func (s *BoltStore) FindTag(name string) (*Tag, error) {
	var t Tag
	err := s.db.View(func(tx *bolt.Tx) error {
		k := tx.Bucket(bucketTagByName).Get([]byte(name))
		if k == nil {
			return errs.New(errs.KindNotFound, "tag %s not found", name)
		}
		data := tx.Bucket(bucketTag).Get(k)
		if data == nil {
			return errs.New(errs.KindNotFound, "tag %s not found", name)
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) ListTags() ([]*Tag, error) {
	var out []*Tag
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTag).ForEach(func(_, v []byte) error {
			var t Tag
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			out = append(out, &t)
			return nil
		})
	})
	return out, err
}

func tagxrefKey(tagID, rid int64) []byte {
	k := make([]byte, 16)
	binary.BigEndian.PutUint64(k[:8], uint64(tagID))
	binary.BigEndian.PutUint64(k[8:], uint64(rid))
	return k
}

func (s *BoltStore) PutTagxref(x *Tagxref) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(x)
		if err != nil {
			return err
		}
		key := tagxrefKey(x.TagID, x.RID)
		if err := tx.Bucket(bucketTagxref).Put(key, data); err != nil {
			return err
		}
		if err := appendIndex(tx.Bucket(bucketTagxrefByRID), ridKey(x.RID), key); err != nil {
			return err
		}
		return appendIndex(tx.Bucket(bucketTagxrefByTag), ridKey(x.TagID), key)
	})
}

func (s *BoltStore) TagxrefsForRID(rid int64) ([]*Tagxref, error) {
	return s.tagxrefsByIndex(bucketTagxrefByRID, ridKey(rid))
}

func (s *BoltStore) TagxrefsForTag(tagID int64) ([]*Tagxref, error) {
	return s.tagxrefsByIndex(bucketTagxrefByTag, ridKey(tagID))
}

func (s *BoltStore) tagxrefsByIndex(indexBucket, indexKey []byte) ([]*Tagxref, error) {
	var out []*Tagxref
	err := s.db.View(func(tx *bolt.Tx) error {
		keys, err := readIndex(tx.Bucket(indexBucket), indexKey)
		if err != nil {
			return err
		}
		xb := tx.Bucket(bucketTagxref)
		for _, k := range keys {
			data := xb.Get(k)
			if data == nil {
				continue
			}
			var x Tagxref
			if err := json.Unmarshal(data, &x); err != nil {
				return err
			}
			out = append(out, &x)
		}
		return nil
	})
	return out, err
}

// --- event ---

func (s *BoltStore) PutEvent(e *Event) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketEvent).Put(ridKey(e.RID), data)
	})
}

func (s *BoltStore) ListEvents() ([]*Event, error) {
	var out []*Event
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEvent).ForEach(func(_, v []byte) error {
			var e Event
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			out = append(out, &e)
			return nil
		})
	})
	return out, err
}

// --- leaf / private / unsent / unclustered (membership bags) ---

func (s *BoltStore) MarkLeaf(rid int64) error   { return setMember(s.db, bucketLeaf, rid) }
func (s *BoltStore) UnmarkLeaf(rid int64) error { return clearMember(s.db, bucketLeaf, rid) }
func (s *BoltStore) IsLeaf(rid int64) (bool, error) { return isMember(s.db, bucketLeaf, rid) }
func (s *BoltStore) ListLeaves() ([]int64, error)   { return listMembers(s.db, bucketLeaf) }

func (s *BoltStore) MarkPrivate(rid int64) error { return setMember(s.db, bucketPrivate, rid) }
func (s *BoltStore) IsPrivate(rid int64) (bool, error) { return isMember(s.db, bucketPrivate, rid) }

func (s *BoltStore) MarkUnsent(rid int64) error   { return setMember(s.db, bucketUnsent, rid) }
func (s *BoltStore) ClearUnsent(rid int64) error  { return clearMember(s.db, bucketUnsent, rid) }
func (s *BoltStore) ListUnsent() ([]int64, error) { return listMembers(s.db, bucketUnsent) }

func (s *BoltStore) MarkUnclustered(rid int64) error  { return setMember(s.db, bucketUnclustered, rid) }
func (s *BoltStore) ClearUnclustered(rid int64) error { return clearMember(s.db, bucketUnclustered, rid) }
func (s *BoltStore) ListUnclustered() ([]int64, error) {
	return listMembers(s.db, bucketUnclustered)
}

func setMember(db *bolt.DB, bucket []byte, rid int64) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(ridKey(rid), []byte{1})
	})
}

func clearMember(db *bolt.DB, bucket []byte, rid int64) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete(ridKey(rid))
	})
}

func isMember(db *bolt.DB, bucket []byte, rid int64) (bool, error) {
	var ok bool
	err := db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket(bucket).Get(ridKey(rid)) != nil
		return nil
	})
	return ok, err
}

func listMembers(db *bolt.DB, bucket []byte) ([]int64, error) {
	var out []int64
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			out = append(out, keyToRID(k))
			return nil
		})
	})
	return out, err
}

// --- ticket / ticketchng / forumpost ---

func (s *BoltStore) PutTicket(t *Ticket) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketTicket).Put([]byte(t.TktID), data)
	})
}

func (s *BoltStore) GetTicket(tktID string) (*Ticket, error) {
	var t Ticket
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketTicket).Get([]byte(tktID))
		if data == nil {
			return errs.New(errs.KindNotFound, "ticket %s not found", tktID)
		}
		return json.Unmarshal(data, &t)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *BoltStore) PutTicketChange(c *TicketChange) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketTicketChange).Put(ridKey(c.RID), data)
	})
}

func (s *BoltStore) ChangesForTicket(tktID string) ([]*TicketChange, error) {
	var out []*TicketChange
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTicketChange).ForEach(func(_, v []byte) error {
			var c TicketChange
			if err := json.Unmarshal(v, &c); err != nil {
				return err
			}
			if c.TktID == tktID {
				out = append(out, &c)
			}
			return nil
		})
	})
	return out, err
}

func (s *BoltStore) PutForumPost(p *ForumPost) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(p)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketForumPost).Put(ridKey(p.RID), data); err != nil {
			return err
		}
		return appendIndex(tx.Bucket(bucketForumByThread), ridKey(p.ThreadRID), ridKey(p.RID))
	})
}

func (s *BoltStore) GetForumPost(rid int64) (*ForumPost, error) {
	var p ForumPost
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketForumPost).Get(ridKey(rid))
		if data == nil {
			return errs.New(errs.KindNotFound, "forum post rid %d not found", rid)
		}
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *BoltStore) ThreadPosts(threadRID int64) ([]*ForumPost, error) {
	var out []*ForumPost
	err := s.db.View(func(tx *bolt.Tx) error {
		keys, err := readIndex(tx.Bucket(bucketForumByThread), ridKey(threadRID))
		if err != nil {
			return err
		}
		pb := tx.Bucket(bucketForumPost)
		for _, k := range keys {
			data := pb.Get(k)
			if data == nil {
				continue
			}
			var p ForumPost
			if err := json.Unmarshal(data, &p); err != nil {
				return err
			}
			out = append(out, &p)
		}
		return nil
	})
	return out, err
}

// --- secondary-index helper: one indexKey maps to many appended item
// keys, stored as a length-prefixed concatenation since bbolt has no
// native multimap. ---

func appendIndex(b *bolt.Bucket, indexKey, itemKey []byte) error {
	existing := b.Get(indexKey)
	buf := make([]byte, len(existing)+4+len(itemKey))
	copy(buf, existing)
	binary.BigEndian.PutUint32(buf[len(existing):], uint32(len(itemKey)))
	copy(buf[len(existing)+4:], itemKey)
	return b.Put(indexKey, buf)
}

func readIndex(b *bolt.Bucket, indexKey []byte) ([][]byte, error) {
	data := b.Get(indexKey)
	var out [][]byte
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, errs.New(errs.KindConsistency, "corrupt secondary index entry")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, errs.New(errs.KindConsistency, "corrupt secondary index entry")
		}
		key := make([]byte, n)
		copy(key, data[:n])
		out = append(out, key)
		data = data[n:]
	}
	return out, nil
}
