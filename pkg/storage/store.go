package storage

// Store is the persistence interface stow's engine runs against. It is
// implemented by BoltStore; tests may supply an in-memory fake.
type Store interface {
	NextRID() (int64, error)

	PutBlob(b *Blob) error
	GetBlob(rid int64) (*Blob, error)
	GetBlobByHash(hash string) (*Blob, error)
	ListBlobs() ([]*Blob, error)
	DeleteBlob(rid int64) error

	PutPlink(p *Plink) error
	ParentsOf(childRID int64) ([]*Plink, error)
	ChildrenOf(parentRID int64) ([]*Plink, error)
	ListPlinks() ([]*Plink, error)

	PutFilename(f *Filename) error
	GetFilename(fnid int64) (*Filename, error)
	FindFilename(name string) (*Filename, error)

	PutMlink(m *Mlink) error
	MlinksForManifest(mid int64) ([]*Mlink, error)
	MlinksForFilename(fnid int64) ([]*Mlink, error)

	PutTag(t *Tag) error
	FindTag(name string) (*Tag, error)
	ListTags() ([]*Tag, error)

	PutTagxref(x *Tagxref) error
	TagxrefsForRID(rid int64) ([]*Tagxref, error)
	TagxrefsForTag(tagID int64) ([]*Tagxref, error)

	PutEvent(e *Event) error
	ListEvents() ([]*Event, error)

	MarkLeaf(rid int64) error
	UnmarkLeaf(rid int64) error
	IsLeaf(rid int64) (bool, error)
	ListLeaves() ([]int64, error)

	MarkPrivate(rid int64) error
	IsPrivate(rid int64) (bool, error)

	MarkUnsent(rid int64) error
	ClearUnsent(rid int64) error
	ListUnsent() ([]int64, error)

	MarkUnclustered(rid int64) error
	ClearUnclustered(rid int64) error
	ListUnclustered() ([]int64, error)

	PutTicket(t *Ticket) error
	GetTicket(tktID string) (*Ticket, error)
	PutTicketChange(c *TicketChange) error
	ChangesForTicket(tktID string) ([]*TicketChange, error)

	PutForumPost(p *ForumPost) error
	GetForumPost(rid int64) (*ForumPost, error)
	ThreadPosts(threadRID int64) ([]*ForumPost, error)

	Close() error
}
