package docstore

import "fmt"

// Op is the kind of a single write.
type Op int

const (
	// OpCreate writes a new document and fails if one already exists.
	OpCreate Op = iota + 1
	// OpSet merges fields into the document, creating it when absent.
	OpSet
	// OpPatch merges fields into an existing document and fails if it is absent.
	OpPatch
	// OpDelete removes the document.
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpPatch:
		return "patch"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Increment is a field value applied as a delta against the committed value.
// A missing field counts as zero.
type Increment int64

// Inc returns an increment-by-n field value.
func Inc(n int64) Increment { return Increment(n) }

type removeField struct{}

// Remove is a field value that deletes the field from the document.
var Remove = removeField{}

// Write is one document mutation inside a batch.
type Write struct {
	Op     Op
	Ref    Ref
	Fields Doc
	// MustExist makes a delete fail the batch when the document is absent.
	MustExist bool
	// Expect lists field values the stored document must hold when the write is applied.
	// A non-empty Expect also requires the document to exist.
	Expect Doc
	// OnCreate is merged before Fields when a set creates the document.
	OnCreate Doc
}

func (w Write) String() string { return w.Op.String() + " " + w.Ref.String() }

// Batch groups writes that are committed atomically, in order.
type Batch struct {
	writes []Write
}

func NewBatch() *Batch { return &Batch{} }

func (b *Batch) Create(ref Ref, fields Doc) *Batch {
	return b.Add(Write{Op: OpCreate, Ref: ref, Fields: fields})
}

func (b *Batch) Set(ref Ref, fields Doc) *Batch {
	return b.Add(Write{Op: OpSet, Ref: ref, Fields: fields})
}

func (b *Batch) Patch(ref Ref, fields Doc) *Batch {
	return b.Add(Write{Op: OpPatch, Ref: ref, Fields: fields})
}

func (b *Batch) Delete(ref Ref, mustExist bool) *Batch {
	return b.Add(Write{Op: OpDelete, Ref: ref, MustExist: mustExist})
}

// Add appends a prepared write.
func (b *Batch) Add(w Write) *Batch {
	b.writes = append(b.writes, w)
	return b
}

// Writes returns the writes in commit order.
func (b *Batch) Writes() []Write {
	out := make([]Write, len(b.writes))
	copy(out, b.writes)
	return out
}

func (b *Batch) Len() int { return len(b.writes) }
