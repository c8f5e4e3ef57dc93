package storage

// Blob is one content-addressed artifact record: either the literal
// bytes of an artifact or a delta against another blob (SrcRID).
type Blob struct {
	RID       int64  `json:"rid"`
	Hash      string `json:"hash"`
	Size      int64  `json:"size"` // uncompressed size of the artifact this blob decodes to
	SrcRID    int64  `json:"src_rid"` // 0 if Content is literal, not a delta
	IsDelta   bool   `json:"is_delta"`
	Content   []byte `json:"content"` // zlib-compressed on disk; see pkg/buffer
	Private   bool   `json:"private"`
}

// Plink is one edge of the version DAG: Child has Parent as a direct
// ancestor. IsMerge distinguishes primary parentage from merge parents.
type Plink struct {
	ChildRID  int64 `json:"child_rid"`
	ParentRID int64 `json:"parent_rid"`
	IsMerge   bool  `json:"is_merge"`
	Mtime     float64 `json:"mtime"` // Julian day the edge was recorded
}

// Filename interns a repo-relative path so mlink rows can reference it
// by integer ID instead of repeating the string.
type Filename struct {
	FNID int64  `json:"fnid"`
	Name string `json:"name"`
}

// Mlink records that manifest MID associates file FNID with blob FID,
// optionally replacing a prior version PID.
type Mlink struct {
	MID     int64 `json:"mid"`
	FID     int64 `json:"fid"`
	PID     int64 `json:"pid"` // 0 if this is the file's first appearance
	FNID    int64 `json:"fnid"`
	PermChg bool  `json:"perm_chg"`
	IsAux   bool  `json:"is_aux"` // part of a merge's auxiliary parent, not primary
}

// Tag is a named, content-addressed label (a branch name, a symbolic
// tag, a cancellation marker, ...).
type Tag struct {
	TagID int64  `json:"tag_id"`
	Name  string `json:"name"`
}

// Tagxref records one application of a tag to an artifact: when
// (Mtime), by what propagation source (SrcRID, 0 for a direct
// application), and with what associated value.
type Tagxref struct {
	TagID    int64   `json:"tag_id"`
	RID      int64   `json:"rid"`
	SrcRID   int64   `json:"src_rid"`
	OrigID   int64   `json:"orig_id"` // rid where a propagating tag originated, 0 for a direct application
	Mtime    float64 `json:"mtime"`
	Value    string  `json:"value"`
	TagType  int     `json:"tag_type"` // 0=cancel, 1=single, 2=propagating
}

// Event is a timeline entry: a checkin, a tag change, a ticket change,
// a wiki edit, or a forum post, keyed by the artifact that produced it.
type Event struct {
	RID     int64   `json:"rid"`
	Type    string  `json:"type"`
	Mtime   float64 `json:"mtime"`
	User    string  `json:"user"`
	Comment string  `json:"comment"`
}

// Ticket is a bug-tracker record rebuilt from ticket-change artifacts.
type Ticket struct {
	TktID  string            `json:"tkt_id"`
	Fields map[string]string `json:"fields"`
	Mtime  float64           `json:"mtime"`
}

// TicketChange is one raw change artifact contributing to a Ticket.
type TicketChange struct {
	RID    int64             `json:"rid"`
	TktID  string            `json:"tkt_id"`
	Mtime  float64           `json:"mtime"`
	Fields map[string]string `json:"fields"`
}

// ForumPost is one forum message artifact.
type ForumPost struct {
	RID       int64  `json:"rid"`
	ThreadRID int64  `json:"thread_rid"`
	InReplyTo int64  `json:"in_reply_to"`
	User      string `json:"user"`
	Title     string `json:"title"`
}
