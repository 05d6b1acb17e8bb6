package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLayerValid(t *testing.T) {
	assert.True(t, LayerWorking.Valid())
	assert.True(t, LayerShortTerm.Valid())
	assert.True(t, LayerLongTerm.Valid())
	assert.False(t, Layer("archived").Valid())
}

func TestSourceValid(t *testing.T) {
	assert.True(t, SourceUser.Valid())
	assert.True(t, SourceAgent.Valid())
	assert.True(t, SourceSystem.Valid())
	assert.False(t, Source("webhook").Valid())
}

func TestClampImportance(t *testing.T) {
	assert.Equal(t, MinImportance, ClampImportance(-1))
	assert.Equal(t, MaxImportance, ClampImportance(5))
	assert.Equal(t, 0.5, ClampImportance(0.5))
}

func TestRecordAgeDays(t *testing.T) {
	r := &Record{Timestamp: 0}
	assert.InDelta(t, 1.0, r.AgeDays(86400000), 1e-9)
	assert.InDelta(t, 30.0, r.AgeDays(30*86400000), 1e-9)
}

func TestRecordMemoryScore(t *testing.T) {
	r := &Record{Timestamp: 0, Importance: 0.8, AccessCount: 0}
	score := r.MemoryScore(30*86400000, 0.1)
	expectedDecay := 0.8 * math.Exp(-0.1*30/30.0)
	assert.InDelta(t, expectedDecay, score, 1e-9)

	withAccess := &Record{Timestamp: 0, Importance: 0.8, AccessCount: 9}
	scoreWithAccess := withAccess.MemoryScore(0, 0.1)
	assert.InDelta(t, 0.8+0.1*math.Log(10), scoreWithAccess, 1e-9)
}

func TestRecordHasAllTags(t *testing.T) {
	r := &Record{Tags: []string{"a", "b", "c"}}
	assert.True(t, r.HasAllTags(nil))
	assert.True(t, r.HasAllTags([]string{"a", "c"}))
	assert.False(t, r.HasAllTags([]string{"a", "z"}))
}

func TestRecordPrimaryTag(t *testing.T) {
	assert.Equal(t, "uncategorized", (&Record{}).PrimaryTag())
	assert.Equal(t, "a", (&Record{Tags: []string{"a", "b"}}).PrimaryTag())
}

func TestRecordClone(t *testing.T) {
	r := &Record{ID: "1", Embedding: []float32{1, 2}, Tags: []string{"a"}}
	cp := r.Clone()

	cp.Embedding[0] = 99
	cp.Tags[0] = "changed"

	assert.Equal(t, float32(1), r.Embedding[0])
	assert.Equal(t, "a", r.Tags[0])
	assert.Equal(t, r.ID, cp.ID)
}
