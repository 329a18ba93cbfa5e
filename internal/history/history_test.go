package history

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// fakeTarget is a counter whose value is the snapshot payload.
type fakeTarget struct {
	value    int
	restored []Snapshot
	// recordDuringRestore simulates mutation events firing while a
	// snapshot is applied.
	engine *Engine
}

func (f *fakeTarget) TakeSnapshot() Snapshot {
	return Snapshot{Data: []byte(strconv.Itoa(f.value)), Structural: true}
}

func (f *fakeTarget) RestoreSnapshot(s Snapshot) {
	f.value, _ = strconv.Atoi(string(s.Data))
	f.restored = append(f.restored, s)
	if f.engine != nil {
		// Replay artifacts must never become new history entries.
		f.engine.Record(models.ReasonEdit)
	}
}

func newTestEngine(t *testing.T, limit int) (*Engine, *fakeTarget) {
	t.Helper()
	target := &fakeTarget{}
	e := New(target, limit)
	return e, target
}

func TestEngine_BaselineSnapshot(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	assert.False(t, e.CanUndo(), "baseline alone is not undoable")
	assert.False(t, e.CanRedo())
	assert.Equal(t, 0, e.Depth())
}

func TestEngine_UndoRedoAreInverse(t *testing.T) {
	e, target := newTestEngine(t, 10)

	target.value = 1
	e.Record(models.ReasonEdit)
	target.value = 2
	e.Record(models.ReasonEdit)

	e.Undo()
	assert.Equal(t, 1, target.value)
	e.Undo()
	assert.Equal(t, 0, target.value, "undo reaches the baseline")
	assert.False(t, e.CanUndo())

	e.Redo()
	assert.Equal(t, 1, target.value)
	e.Redo()
	assert.Equal(t, 2, target.value)
	assert.False(t, e.CanRedo())
}

func TestEngine_UndoPastEmptyIsNoOp(t *testing.T) {
	e, target := newTestEngine(t, 10)
	e.Undo()
	e.Undo()
	assert.Equal(t, 0, target.value)
	assert.Empty(t, target.restored)
}

func TestEngine_FreshMutationClearsRedo(t *testing.T) {
	e, target := newTestEngine(t, 10)

	target.value = 1
	e.Record(models.ReasonEdit)
	e.Undo()
	require.True(t, e.CanRedo())

	target.value = 7
	e.Record(models.ReasonEdit)
	assert.False(t, e.CanRedo(), "linear history: new edit drops the redo branch")

	e.Undo()
	assert.Equal(t, 0, target.value)
}

func TestEngine_RecordSuppressedWhileApplying(t *testing.T) {
	target := &fakeTarget{}
	e := New(target, 10)
	target.engine = e

	target.value = 1
	e.Record(models.ReasonEdit)
	require.Equal(t, 1, e.Depth())

	e.Undo()
	// The Record fired inside RestoreSnapshot must not add an entry.
	assert.Equal(t, 0, e.Depth())
	assert.True(t, e.CanRedo())
}

func TestEngine_RestoreReasonTagging(t *testing.T) {
	e, target := newTestEngine(t, 10)

	target.value = 1
	e.Record(models.ReasonEdit)

	e.Undo()
	require.Len(t, target.restored, 1)
	assert.Equal(t, models.ReasonUndo, target.restored[0].Reason)

	e.Redo()
	require.Len(t, target.restored, 2)
	assert.Equal(t, models.ReasonRedo, target.restored[1].Reason)
}

func TestEngine_BoundedDepth(t *testing.T) {
	e, target := newTestEngine(t, 3)

	for i := 1; i <= 10; i++ {
		target.value = i
		e.Record(models.ReasonEdit)
	}
	assert.Equal(t, 3, e.Depth())

	// Undo all the way: the oldest reachable state is value 7, the shifted
	// baseline.
	e.Undo()
	e.Undo()
	e.Undo()
	assert.Equal(t, 7, target.value)
	assert.False(t, e.CanUndo())
}

func TestEngine_Reset(t *testing.T) {
	e, target := newTestEngine(t, 10)

	target.value = 5
	e.Record(models.ReasonEdit)
	e.Undo()
	require.True(t, e.CanRedo())

	target.value = 9
	e.Reset()
	assert.False(t, e.CanUndo())
	assert.False(t, e.CanRedo())

	// The new baseline is the state at reset time.
	target.value = 10
	e.Record(models.ReasonEdit)
	e.Undo()
	assert.Equal(t, 9, target.value)
}

func TestEngine_LimitFallback(t *testing.T) {
	e, target := newTestEngine(t, 0)
	for i := 1; i <= 150; i++ {
		target.value = i
		e.Record(models.ReasonEdit)
	}
	assert.Equal(t, 100, e.Depth())
}
