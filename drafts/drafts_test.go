package drafts

import (
	"testing"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(Options{Dir: dir}, cmtlog.NewNopLogger())
	require.NoError(t, err)
	return s
}

func sampleSnapshot(t *testing.T) wizard.Snapshot {
	t.Helper()
	w := wizard.New(nil)
	require.NoError(t, w.UpdateField(wizard.FieldSenderName, "Alice"))
	require.NoError(t, w.UpdateField(wizard.FieldSenderAddress, "1 Main St"))
	require.NoError(t, w.Advance())
	return w.Snapshot()
}

func TestSaveLoadDelete(t *testing.T) {
	s := openStore(t, "")
	defer s.Close()

	snap := sampleSnapshot(t)
	require.NoError(t, s.Save("s1", snap))

	got, err := s.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	restored, err := wizard.Restore(got, nil)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepReceiverInfo, restored.Step())
	assert.Equal(t, snap.Record.TrackingIdentifier, restored.TrackingIdentifier())

	require.NoError(t, s.Delete("s1"))
	_, err = s.Load("s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete("s1"))
}

func TestLoadMissing(t *testing.T) {
	s := openStore(t, "")
	defer s.Close()

	_, err := s.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveOverwrites(t *testing.T) {
	s := openStore(t, "")
	defer s.Close()

	snap := sampleSnapshot(t)
	require.NoError(t, s.Save("s1", snap))
	snap.Step = wizard.StepShipmentInfo
	snap.Record.ReceiverName = "Bob"
	require.NoError(t, s.Save("s1", snap))

	got, err := s.Load("s1")
	require.NoError(t, err)
	assert.Equal(t, wizard.StepShipmentInfo, got.Step)
	assert.Equal(t, "Bob", got.Record.ReceiverName)
}

func TestList(t *testing.T) {
	s := openStore(t, "")
	defer s.Close()

	a, b := sampleSnapshot(t), sampleSnapshot(t)
	require.NoError(t, s.Save("b", b))
	require.NoError(t, s.Save("a", a))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, a, list[0].Snapshot)
	assert.Equal(t, "b", list[1].ID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	snap := sampleSnapshot(t)

	s := openStore(t, dir)
	require.NoError(t, s.Save("keep", snap))
	require.NoError(t, s.Close())

	s = openStore(t, dir)
	defer s.Close()
	got, err := s.Load("keep")
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}
