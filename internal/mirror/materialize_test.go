package mirror_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"dropmirror/internal/mirror"
	"dropmirror/internal/testutil"
)

func TestMaterialize_Link(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, _, _ := newTestService(testutil.NewFakeRemote(), fs)

	item := mirror.Item{ID: "1", Type: "link", Name: "Cool Site", Link: "https://example.com/x"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeWritten, res.Outcome)
	require.Equal(t, filepath.Join("/out", "Cool Site.url"), res.Path)

	data, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	require.Equal(t, "[InternetShortcut]\nURL=https://example.com/x", string(data))
}

func TestMaterialize_LinkUnnamed(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, _, _ := newTestService(testutil.NewFakeRemote(), fs)

	item := mirror.Item{ID: "2", Type: "link", Link: "https://example.com"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeWritten, res.Outcome)
	exists, err := afero.Exists(fs, filepath.Join("/out", "link.url"))
	require.NoError(t, err)
	require.True(t, exists)
}

func TestMaterialize_Binary(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := testutil.NewFakeRemote()
	payload := []byte("\x89PNG fake image bytes")
	remote.SetBinary("https://cdn.example/files/pic.PNG", payload)

	svc, _, _ := newTestService(remote, fs)
	item := mirror.Item{ID: "3", Type: "image", Name: "pic", Content: "https://cdn.example/files/pic.PNG"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeWritten, res.Outcome)
	require.Equal(t, filepath.Join("/out", "pic.PNG"), res.Path)
	require.Equal(t, int64(len(payload)), res.Bytes)

	data, err := afero.ReadFile(fs, res.Path)
	require.NoError(t, err)
	require.Equal(t, payload, data)
}

func TestMaterialize_BinaryFallsBackToURL(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := testutil.NewFakeRemote()
	remote.SetBinary("https://cdn.example/doc.pdf", []byte("%PDF"))

	svc, _, _ := newTestService(remote, fs)
	item := mirror.Item{ID: "4", Type: "file", Name: "doc", URL: "https://cdn.example/doc.pdf"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeWritten, res.Outcome)
	require.Equal(t, []string{"https://cdn.example/doc.pdf"}, remote.BinaryCalls)
}

func TestMaterialize_Skipped(t *testing.T) {
	tests := []struct {
		name string
		item mirror.Item
	}{
		{name: "unsupported type", item: mirror.Item{ID: "1", Type: "text", Name: "note", Content: "hello"}},
		{name: "link without target", item: mirror.Item{ID: "2", Type: "link", Name: "empty"}},
		{name: "binary without source", item: mirror.Item{ID: "3", Type: "image", Name: "ghost"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			remote := testutil.NewFakeRemote()
			svc, _, _ := newTestService(remote, fs)

			res := svc.Materialize(context.Background(), tt.item, "/out")

			require.Equal(t, mirror.OutcomeSkipped, res.Outcome)
			require.NotEmpty(t, res.Reason)
			require.Empty(t, remote.BinaryCalls)

			exists, err := afero.DirExists(fs, "/out")
			require.NoError(t, err)
			require.False(t, exists, "skipped item should not touch the filesystem")
		})
	}
}

func TestMaterialize_FetchFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))
	remote := testutil.NewFakeRemote()
	remote.SetBinaryError("https://cdn.example/gone.jpg", errors.New("403 Forbidden"))

	svc, _, _ := newTestService(remote, fs)
	item := mirror.Item{ID: "5", Type: "image", Name: "gone", Content: "https://cdn.example/gone.jpg"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeFailed, res.Outcome)
	require.ErrorIs(t, res.Err, mirror.ErrItem)

	exists, err := afero.Exists(fs, filepath.Join("/out", "gone.jpg"))
	require.NoError(t, err)
	require.False(t, exists, "no file should be created when the fetch fails")
}

func TestMaterialize_InterruptedStreamLeavesTruncatedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/out", 0755))
	remote := testutil.NewFakeRemote()
	remote.SetBrokenBinary("https://cdn.example/big.mp4", []byte("0123456789"), 4)

	svc, _, _ := newTestService(remote, fs)
	item := mirror.Item{ID: "6", Type: "video", Name: "big", Content: "https://cdn.example/big.mp4"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeFailed, res.Outcome)
	require.ErrorIs(t, res.Err, mirror.ErrItem)
	require.ErrorIs(t, res.Err, testutil.ErrBrokenStream)
	require.Equal(t, int64(4), res.Bytes)

	data, err := afero.ReadFile(fs, filepath.Join("/out", "big.mp4"))
	require.NoError(t, err)
	require.Equal(t, "0123", string(data))
}

func TestMaterialize_Overwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	dest := filepath.Join("/out", "a.txt")
	require.NoError(t, afero.WriteFile(fs, dest, []byte("old content that is longer"), 0644))

	remote := testutil.NewFakeRemote()
	remote.SetBinary("https://cdn.example/a.txt", []byte("new"))

	svc, _, _ := newTestService(remote, fs)
	item := mirror.Item{ID: "7", Type: "file", Name: "a", Content: "https://cdn.example/a.txt"}
	res := svc.Materialize(context.Background(), item, "/out")

	require.Equal(t, mirror.OutcomeWritten, res.Outcome)
	data, err := afero.ReadFile(fs, dest)
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "skipped", mirror.OutcomeSkipped.String())
	require.Equal(t, "written", mirror.OutcomeWritten.String())
	require.Equal(t, "failed", mirror.OutcomeFailed.String())
}
