package docstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	ref := Ref{Collection: "c", Key: "k"}
	stored := Doc{"a": json.Number("1"), "name": "x"}

	tests := []struct {
		name    string
		current Doc
		exists  bool
		write   Write
		want    Doc
		keep    bool
		wantErr error
	}{
		{
			name:  "create on absent",
			write: Write{Op: OpCreate, Ref: ref, Fields: Doc{"a": 2}},
			want:  Doc{"a": json.Number("2")},
			keep:  true,
		},
		{
			name:    "create on existing",
			current: stored, exists: true,
			write:   Write{Op: OpCreate, Ref: ref, Fields: Doc{"a": 2}},
			wantErr: ErrPrecondition,
		},
		{
			name:  "set on absent starts from zero",
			write: Write{Op: OpSet, Ref: ref, Fields: Doc{"a": Inc(3)}},
			want:  Doc{"a": json.Number("3")},
			keep:  true,
		},
		{
			name:    "set merges and increments",
			current: stored, exists: true,
			write:   Write{Op: OpSet, Ref: ref, Fields: Doc{"a": Inc(-1), "b": true}},
			want:    Doc{"a": json.Number("0"), "name": "x", "b": true},
			keep:    true,
		},
		{
			name:    "patch on absent",
			write:   Write{Op: OpPatch, Ref: ref, Fields: Doc{"a": 1}},
			wantErr: ErrPrecondition,
		},
		{
			name:    "patch removes field",
			current: stored, exists: true,
			write:   Write{Op: OpPatch, Ref: ref, Fields: Doc{"name": Remove}},
			want:    Doc{"a": json.Number("1")},
			keep:    true,
		},
		{
			name:    "delete existing",
			current: stored, exists: true,
			write:   Write{Op: OpDelete, Ref: ref, MustExist: true},
		},
		{
			name:    "delete absent must exist",
			write:   Write{Op: OpDelete, Ref: ref, MustExist: true},
			wantErr: ErrPrecondition,
		},
		{
			name:  "delete absent",
			write: Write{Op: OpDelete, Ref: ref},
		},
		{
			name:    "expect holds",
			current: stored, exists: true,
			write:   Write{Op: OpPatch, Ref: ref, Fields: Doc{"a": Inc(-1)}, Expect: Doc{"a": int64(1)}},
			want:    Doc{"a": json.Number("0"), "name": "x"},
			keep:    true,
		},
		{
			name:    "expect mismatch",
			current: stored, exists: true,
			write:   Write{Op: OpPatch, Ref: ref, Fields: Doc{"a": Inc(-1)}, Expect: Doc{"a": 2}},
			wantErr: ErrPrecondition,
		},
		{
			name:    "expect on missing field",
			current: stored, exists: true,
			write:   Write{Op: OpDelete, Ref: ref, Expect: Doc{"count": 1}},
			wantErr: ErrPrecondition,
		},
		{
			name:    "expect on absent document",
			write:   Write{Op: OpSet, Ref: ref, Fields: Doc{"a": Inc(1)}, Expect: Doc{"a": 0}},
			wantErr: ErrPrecondition,
		},
		{
			name:  "set on absent takes on-create fields",
			write: Write{Op: OpSet, Ref: ref, Fields: Doc{"a": Inc(1)}, OnCreate: Doc{"a": 0, "name": "new"}},
			want:  Doc{"a": json.Number("1"), "name": "new"},
			keep:  true,
		},
		{
			name:    "set on existing ignores on-create fields",
			current: stored, exists: true,
			write:   Write{Op: OpSet, Ref: ref, Fields: Doc{"a": Inc(1)}, OnCreate: Doc{"name": "new"}},
			want:    Doc{"a": json.Number("2"), "name": "x"},
			keep:    true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep, err := Apply(tt.current, tt.exists, tt.write)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.keep, keep)
			if tt.keep {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestApply_IncrementOnString(t *testing.T) {
	_, _, err := Apply(Doc{"a": "x"}, true, Write{Op: OpSet, Fields: Doc{"a": Inc(1)}})
	require.Error(t, err)
}

func TestApply_DoesNotMutateCurrent(t *testing.T) {
	cur := Doc{"a": json.Number("1")}
	_, _, err := Apply(cur, true, Write{Op: OpPatch, Fields: Doc{"a": Inc(5)}})
	require.NoError(t, err)
	assert.Equal(t, json.Number("1"), cur["a"])
}

func TestEncodeDecode(t *testing.T) {
	type entry struct {
		Type   string `json:"type"`
		Rating int    `json:"rating"`
		Year   *int   `json:"year,omitempty"`
	}
	doc, err := Encode(entry{Type: "movie", Rating: 7})
	require.NoError(t, err)
	assert.Equal(t, Doc{"type": "movie", "rating": json.Number("7")}, doc)

	var back entry
	require.NoError(t, Decode(doc, &back))
	assert.Equal(t, entry{Type: "movie", Rating: 7}, back)
}

func TestMatches(t *testing.T) {
	doc := Doc{"type": "movie", "rating": json.Number("6"), "seen": true, "gone": nil}
	assert.True(t, Matches(doc, []Predicate{Equal("type", "movie"), Greater("rating", 5)}))
	assert.True(t, Matches(doc, []Predicate{OneOf("rating", 2, 6)}))
	assert.True(t, Matches(doc, []Predicate{Equal("seen", true)}))
	assert.False(t, Matches(doc, []Predicate{Present("gone")}))
	assert.False(t, Matches(doc, []Predicate{Greater("type", 5)}))
	assert.False(t, Matches(doc, []Predicate{Equal("missing", nil)}))
}
