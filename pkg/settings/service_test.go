package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owl-os/retina-console/pkg/document"
	"github.com/owl-os/retina-console/pkg/forms"
	"github.com/owl-os/retina-console/pkg/pipeline"
	"github.com/owl-os/retina-console/pkg/schema"
)

// fakeApplier records invocations and returns a canned error.
type fakeApplier struct {
	err   error
	calls int
}

func (f *fakeApplier) Apply(_ context.Context) error {
	f.calls++
	return f.err
}

// blockingApplier holds Apply open until released.
type blockingApplier struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingApplier) Apply(_ context.Context) error {
	close(b.started)
	<-b.release
	return nil
}

func newTestService(t *testing.T, applier pipeline.Applier) (*Service, *document.LocalStore) {
	t.Helper()
	store, err := document.NewLocalStore(filepath.Join(t.TempDir(), "user.yml"))
	require.NoError(t, err)
	return NewService(store, schema.Builtin(), applier), store
}

func seed(t *testing.T, store *document.LocalStore, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(store.Path(), []byte(yaml), 0o644))
}

func TestService_FormView(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t, &fakeApplier{})
	seed(t, store, "capture:\n  fs: 1000000\n")

	form, err := svc.FormView(context.Background())
	require.NoError(t, err)

	capture := form.Children[0]
	require.Equal(t, "capture", capture.Name)
	fs := capture.Children[0]
	assert.Equal(t, "capture.fs", fs.Path)
	assert.True(t, fs.Set)
	assert.Equal(t, 1000000, fs.Value)
}

func TestService_Apply(t *testing.T) {
	t.Parallel()

	t.Run("valid submission is merged, saved, and applied", func(t *testing.T) {
		t.Parallel()
		applier := &fakeApplier{}
		svc, store := newTestService(t, applier)
		seed(t, store, "capture:\n  fs: 1000000\n")

		result, err := svc.Apply(context.Background(), forms.Submission{
			"capture.fs":                   "2000000",
			"capture.device.type":          "rsp1a",
			"capture.device.gainReduction": "40",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, result.Outcome)
		assert.Empty(t, result.Errors)
		assert.Equal(t, 1, applier.calls)

		doc, err := store.Load(context.Background())
		require.NoError(t, err)
		capture := doc["capture"].(map[string]any)
		assert.Equal(t, 2000000, capture["fs"])
		device := capture["device"].(map[string]any)
		assert.Equal(t, 40, device["gainReduction"])
		assert.Equal(t, "rsp1a", device["type"])
	})

	t.Run("out-of-range value yields one field error and no write", func(t *testing.T) {
		t.Parallel()
		applier := &fakeApplier{}
		svc, store := newTestService(t, applier)
		seed(t, store, "capture:\n  fs: 1000000\n")
		before, err := os.ReadFile(store.Path())
		require.NoError(t, err)

		result, err := svc.Apply(context.Background(), forms.Submission{
			"capture.device.gainReduction": "100",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeInvalid, result.Outcome)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "capture.device.gainReduction", result.Errors[0].Path)
		assert.Equal(t, "100", result.Errors[0].Value)
		assert.Equal(t, 0, applier.calls, "pipeline must not run on invalid input")

		after, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		assert.Equal(t, before, after, "document on disk must be unchanged")
	})

	t.Run("untouched sections survive an edit", func(t *testing.T) {
		t.Parallel()
		svc, store := newTestService(t, &fakeApplier{})
		seed(t, store, "capture:\n  fs: 1000000\nother:\n  x: 1\n")

		result, err := svc.Apply(context.Background(), forms.Submission{
			"capture.fs": "2000000",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, result.Outcome)

		doc, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, doc["other"].(map[string]any)["x"])
	})

	t.Run("pipeline failure is reported after the save", func(t *testing.T) {
		t.Parallel()
		applier := &fakeApplier{err: fmt.Errorf("merge script exited 1")}
		svc, store := newTestService(t, applier)

		result, err := svc.Apply(context.Background(), forms.Submission{
			"capture.fs": "2000000",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplyFailed, result.Outcome)
		assert.Contains(t, result.Reason, "merge script exited 1")

		// The edit itself succeeded; the document was saved.
		doc, err := store.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2000000, doc["capture"].(map[string]any)["fs"])
	})

	t.Run("pipeline timeout is reported distinctly", func(t *testing.T) {
		t.Parallel()
		applier := &fakeApplier{err: fmt.Errorf("apply pipeline exceeded 2m0s: %w", pipeline.ErrTimeout)}
		svc, _ := newTestService(t, applier)

		result, err := svc.Apply(context.Background(), forms.Submission{
			"capture.fs": "2000000",
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeTimeout, result.Outcome)
	})

	t.Run("concurrent apply is rejected", func(t *testing.T) {
		t.Parallel()
		applier := &blockingApplier{
			started: make(chan struct{}),
			release: make(chan struct{}),
		}
		svc, _ := newTestService(t, applier)

		done := make(chan error, 1)
		go func() {
			_, err := svc.Apply(context.Background(), forms.Submission{"capture.fs": "1"})
			done <- err
		}()

		<-applier.started
		_, err := svc.Apply(context.Background(), forms.Submission{"capture.fs": "2"})
		assert.ErrorIs(t, err, ErrApplyInFlight)

		close(applier.release)
		require.NoError(t, <-done)
	})
}
