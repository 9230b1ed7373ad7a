package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/rinklog/go/internal/models"
)

var (
	xavier = models.Logger{ID: "x", DisplayName: "Xavier Stone", Initials: "XS"}
	yara   = models.Logger{ID: "y", DisplayName: "Yara Quinn", Initials: "YQ"}
	zoe    = models.Logger{ID: "z", DisplayName: "Zoe", Initials: "ZO"}
)

func TestLedgerAssignAndLookup(t *testing.T) {
	l := NewLedger()

	_, ok := l.OwnerOf(models.ViewGoals)
	assert.False(t, ok)
	assert.False(t, l.IsOwnedByOther(models.ViewGoals, yara.ID))

	l.Assign(models.ViewGoals, xavier)

	got, ok := l.OwnerOf(models.ViewGoals)
	require.True(t, ok)
	assert.Equal(t, models.ViewAssignment{LoggerID: "x", LoggerName: "Xavier Stone", LoggerInitials: "XS"}, got)
	assert.True(t, l.IsOwnedByOther(models.ViewGoals, yara.ID))
	assert.False(t, l.IsOwnedByOther(models.ViewGoals, xavier.ID))
}

func TestLedgerAssignIsIdempotent(t *testing.T) {
	once := NewLedger()
	once.Assign(models.ViewShots, xavier)

	twice := NewLedger()
	twice.Assign(models.ViewShots, xavier)
	twice.Assign(models.ViewShots, xavier)

	assert.Equal(t, once.Snapshot(), twice.Snapshot())
}

func TestLedgerAssignOverwrites(t *testing.T) {
	l := NewLedger()
	l.Assign(models.ViewShots, xavier)
	l.Assign(models.ViewShots, yara)

	got, _ := l.OwnerOf(models.ViewShots)
	assert.Equal(t, yara.ID, got.LoggerID)
	assert.Len(t, l.Snapshot(), 1)
}

func TestLedgerRelease(t *testing.T) {
	l := NewLedger()
	l.Assign(models.ViewPenalties, xavier)
	l.Release(models.ViewPenalties)

	_, ok := l.OwnerOf(models.ViewPenalties)
	assert.False(t, ok)

	// releasing an unowned view is harmless
	l.Release(models.ViewPenalties)
}

func TestLedgerSnapshotIsACopy(t *testing.T) {
	l := NewLedger()
	l.Assign(models.ViewGoals, xavier)

	snap := l.Snapshot()
	delete(snap, models.ViewGoals)

	_, ok := l.OwnerOf(models.ViewGoals)
	assert.True(t, ok)
}

func TestLedgerReplaceDropsUnknownViews(t *testing.T) {
	l := NewLedger()
	l.Replace(models.Assignments{
		models.ViewGoals:        models.AssignmentFor(xavier),
		models.ViewID("dances"): models.AssignmentFor(yara),
	})

	assert.Equal(t, models.Assignments{models.ViewGoals: models.AssignmentFor(xavier)}, l.Snapshot())
}

func TestLedgerPanicsOnUnknownView(t *testing.T) {
	l := NewLedger()
	assert.Panics(t, func() { l.Assign(models.ViewID("zamboni"), xavier) })
	assert.Panics(t, func() { l.OwnerOf(models.ViewID("")) })
}
