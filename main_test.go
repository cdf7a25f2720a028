package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmadzakiakmal/shiptrack/drafts"
	"github.com/ahmadzakiakmal/shiptrack/intake"
	"github.com/ahmadzakiakmal/shiptrack/render"
	"github.com/ahmadzakiakmal/shiptrack/wizard"
)

func newTestService(t *testing.T, store intake.DraftStore) (*intake.Service, *[]wizard.ShipmentRecord) {
	t.Helper()
	var submitted []wizard.ShipmentRecord
	submitter := wizard.SubmitterFunc(func(_ context.Context, r wizard.ShipmentRecord) (*wizard.Acknowledgement, error) {
		submitted = append(submitted, r)
		return &wizard.Acknowledgement{TrackingIdentifier: r.TrackingIdentifier}, nil
	})
	svc, err := intake.NewService(submitter, store, render.DefaultConfig(), nil, nil)
	require.NoError(t, err)
	return svc, &submitted
}

func TestRunIntakeSession(t *testing.T) {
	svc, submitted := newTestService(t, nil)
	dir := t.TempDir()

	script := strings.Join([]string{
		"next",
		"set senderName Alice",
		"set senderAddress 1 Main St",
		"set shipmentDetails early",
		"set weight 5",
		"next",
		"set receivername Bob",
		"set receiverAddress 2 Oak Ave",
		"set trackingIdentifier nope",
		"next",
		"set shipmentDetails box of books",
		"next",
		"export png " + dir,
		"export pdf " + dir,
		"edit 1",
		"export png " + dir,
		"next",
		"next",
		"next",
		"submit",
		"show",
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, runIntakeSession(context.Background(), svc, "", strings.NewReader(script), &out, false))
	output := out.String()

	assert.Contains(t, output, "please fill in Sender Name")
	assert.Contains(t, output, "unknown field")
	assert.Contains(t, output, "tracking identifier is read-only")
	assert.Contains(t, output, "Saved Shipment Details (collected on step 3")
	assert.Contains(t, output, "Step 4/4: Tracking ID")
	assert.Contains(t, output, "the barcode is only available on the tracking summary")
	assert.Contains(t, output, "Submitted shipment")
	assert.NotContains(t, output, "Draft kept")

	require.Len(t, *submitted, 1)
	record := (*submitted)[0]
	assert.Equal(t, "Alice", record.SenderName)
	assert.Equal(t, "1 Main St", record.SenderAddress)
	assert.Equal(t, "Bob", record.ReceiverName)
	assert.Equal(t, "box of books", record.ShipmentDetails)
	assert.Contains(t, output, record.TrackingIdentifier)

	for _, name := range []string{"barcode.png", "barcode.pdf"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestRunIntakeSessionResume(t *testing.T) {
	store, err := drafts.Open(drafts.Options{}, nil)
	require.NoError(t, err)
	defer store.Close()

	svc, _ := newTestService(t, store)
	var out bytes.Buffer
	script := "set senderName Alice\nset senderAddress 1 Main St\nnext\nquit\n"
	require.NoError(t, runIntakeSession(context.Background(), svc, "", strings.NewReader(script), &out, false))

	output := out.String()
	require.Contains(t, output, "Draft kept as session ")
	id := strings.TrimSpace(output[strings.LastIndex(output, "Draft kept as session ")+len("Draft kept as session "):])

	fresh, _ := newTestService(t, store)
	out.Reset()
	require.NoError(t, runIntakeSession(context.Background(), fresh, id, strings.NewReader("show\n"), &out, false))
	assert.Contains(t, out.String(), "Step 2/4: Receiver")
	assert.Contains(t, out.String(), fmt.Sprintf("Draft kept as session %s", id))

	out.Reset()
	require.NoError(t, runIntakeSession(context.Background(), fresh, id, strings.NewReader("discard\n"), &out, false))
	assert.Contains(t, out.String(), fmt.Sprintf("Discarded session %s", id))
	_, err = store.Load(id)
	assert.ErrorIs(t, err, drafts.ErrNotFound)

	_, err = intakeResumeMissing(fresh)
	assert.ErrorIs(t, err, intake.ErrSessionNotFound)
}

func intakeResumeMissing(svc *intake.Service) (string, error) {
	var out bytes.Buffer
	err := runIntakeSession(context.Background(), svc, "missing", strings.NewReader(""), &out, false)
	return out.String(), err
}

func TestBarcodeCommand(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"barcode", "AB12", "--out", dir})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "CODE128")
	assert.Contains(t, out.String(), "AB12")
	assert.Contains(t, out.String(), "image/png")
	assert.Contains(t, out.String(), "application/pdf")
	for _, name := range []string{"barcode.png", "barcode.pdf"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}
}

func TestBarcodeCommandSingleKind(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"barcode", "1234", "--out", dir, "--kind", "png"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(dir, "barcode.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "barcode.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestBarcodeCommandRejectsUnsupportedText(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"barcode", "naïve", "--out", t.TempDir()})
	assert.Error(t, cmd.Execute())
}

func TestRenderTableAlignment(t *testing.T) {
	out := renderTable("Counts",
		[]string{"Name", "N"},
		[][]string{{"a", "1"}, {"b", "100"}, {"c"}},
		[]columnAlignment{alignLeft, alignRight},
	)

	assert.Contains(t, out, "Counts")
	assert.Contains(t, out, "│ a    │   1 │")
	assert.Contains(t, out, "│ b    │ 100 │")
	assert.Contains(t, out, "│ c    │     │")
	assert.Empty(t, renderTable("none", nil, nil, nil))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("*:error", &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Error("shown", "key", "value")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = newLogger("*:loud", &buf)
	assert.Error(t, err)
}
