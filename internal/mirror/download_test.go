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

const tripManifest = `{"name":"Trip","items":[
{"id":1,"type":"image","name":"beach","content":"https://cdn.example/beach.jpg"},
{"id":2,"type":"link","name":"Hotel","link":"https://hotel.example"},
{"id":3,"type":"file","name":"tickets","content":"https://cdn.example/missing.pdf"},
{"id":4,"type":"text","name":"note"},
{"id":5,"type":"video","name":"clip","url":"https://cdn.example/clip"}
]}`

func tripRemote() *testutil.FakeRemote {
	remote := testutil.NewFakeRemote()
	remote.SetJSON("/10.json", tripManifest)
	remote.SetBinary("https://cdn.example/beach.jpg", []byte("jpeg"))
	remote.SetBinary("https://cdn.example/clip", []byte("mp4"))
	return remote
}

func TestDownloadCollection(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, progress, _ := newTestService(tripRemote(), fs)

	c := mirror.Collection{ID: "10", Name: "Trip: Summer"}
	report := svc.DownloadCollection(context.Background(), c, "/run")

	require.Equal(t, mirror.StatusDone, report.Status)
	require.NoError(t, report.Err)
	require.Equal(t, filepath.Join("/run", "Trip- Summer"), report.Dir)
	require.Len(t, report.Items, 5)
	require.Equal(t, 3, report.Count(mirror.OutcomeWritten))
	require.Equal(t, 1, report.Count(mirror.OutcomeSkipped))
	require.Equal(t, 1, report.Count(mirror.OutcomeFailed))

	for _, name := range []string{"index.json", "beach.jpg", "Hotel.url", "clip.mp4"} {
		exists, err := afero.Exists(fs, filepath.Join(report.Dir, name))
		require.NoError(t, err)
		require.True(t, exists, "expected %s", name)
	}

	require.Len(t, progress.Runs, 1)
	run := progress.Runs[0]
	require.Equal(t, "Trip: Summer", run.Label)
	require.Equal(t, 5, run.Total)
	require.Equal(t, 5, run.Increments)
	require.True(t, run.Finished)
}

func TestDownloadCollection_ItemOrder(t *testing.T) {
	svc, _, _ := newTestService(tripRemote(), afero.NewMemMapFs())

	report := svc.DownloadCollection(context.Background(), mirror.Collection{ID: "10", Name: "Trip"}, "/run")

	var ids []string
	for _, it := range report.Items {
		ids = append(ids, it.ItemID)
	}
	require.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
}

func TestDownloadCollection_IndexIsStable(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, _, _ := newTestService(tripRemote(), fs)
	c := mirror.Collection{ID: "10", Name: "Trip"}
	index := filepath.Join("/run", "Trip", mirror.IndexFileName)

	svc.DownloadCollection(context.Background(), c, "/run")
	first, err := afero.ReadFile(fs, index)
	require.NoError(t, err)

	svc.DownloadCollection(context.Background(), c, "/run")
	second, err := afero.ReadFile(fs, index)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Contains(t, string(first), "\n  \"name\": \"Trip\"")
	require.JSONEq(t, tripManifest, string(first))
}

func TestDownloadCollection_ManifestFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *testutil.FakeRemote)
	}{
		{
			name: "fetch error",
			setup: func(r *testutil.FakeRemote) {
				r.SetJSONError("/10.json", errors.New("500 Internal Server Error"))
			},
		},
		{
			name: "null body",
			setup: func(r *testutil.FakeRemote) {
				r.SetJSON("/10.json", "null")
			},
		},
		{
			name: "malformed body",
			setup: func(r *testutil.FakeRemote) {
				r.SetJSON("/10.json", `{"items": [`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			remote := testutil.NewFakeRemote()
			tt.setup(remote)
			svc, progress, logger := newTestService(remote, fs)

			report := svc.DownloadCollection(context.Background(), mirror.Collection{ID: "10", Name: "Trip"}, "/run")

			require.Equal(t, mirror.StatusAborted, report.Status)
			require.ErrorIs(t, report.Err, mirror.ErrManifest)
			require.Empty(t, report.Items)
			require.Empty(t, progress.Runs)
			require.Empty(t, remote.BinaryCalls)
			require.Equal(t, 1, logger.Count("ERROR"))

			dirExists, err := afero.DirExists(fs, filepath.Join("/run", "Trip"))
			require.NoError(t, err)
			require.True(t, dirExists, "collection directory is created before the manifest fetch")

			indexExists, err := afero.Exists(fs, filepath.Join("/run", "Trip", mirror.IndexFileName))
			require.NoError(t, err)
			require.False(t, indexExists)
		})
	}
}

func TestDownloadCollection_EmptyManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := testutil.NewFakeRemote()
	remote.SetJSON("/11.json", `{"name":"Empty","items":[]}`)
	svc, progress, _ := newTestService(remote, fs)

	report := svc.DownloadCollection(context.Background(), mirror.Collection{ID: "11", Name: "Empty"}, "/run")

	require.Equal(t, mirror.StatusDone, report.Status)
	require.Empty(t, report.Items)
	require.Len(t, progress.Runs, 1)
	require.Equal(t, 0, progress.Runs[0].Increments)
	require.True(t, progress.Runs[0].Finished)

	exists, err := afero.Exists(fs, filepath.Join("/run", "Empty", mirror.IndexFileName))
	require.NoError(t, err)
	require.True(t, exists)
}

func TestDownloadCollection_MalformedItems(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := testutil.NewFakeRemote()
	remote.SetJSON("/12.json", `{"name":"Mixed","items":[
{"id":1,"type":"link","name":"Hotel","link":"https://hotel.example"},
{"type":"text","content":{"body":"hi"}},
5,
{"id":{"v":1},"type":"image","content":"https://cdn.example/beach.jpg"},
{"id":2,"type":"image","name":12,"content":"https://cdn.example/beach.jpg"}
]}`)
	remote.SetBinary("https://cdn.example/beach.jpg", []byte("jpeg"))
	svc, progress, logger := newTestService(remote, fs)

	report := svc.DownloadCollection(context.Background(), mirror.Collection{ID: "12", Name: "Mixed"}, "/run")

	require.Equal(t, mirror.StatusDone, report.Status)
	require.Len(t, report.Items, 5)
	require.Equal(t, 2, report.Count(mirror.OutcomeWritten))
	require.Equal(t, 1, report.Count(mirror.OutcomeSkipped))
	require.Equal(t, 2, report.Count(mirror.OutcomeFailed))
	require.ErrorIs(t, report.Items[2].Err, mirror.ErrItem)
	require.ErrorIs(t, report.Items[3].Err, mirror.ErrItem)
	require.Equal(t, 2, logger.Count("WARN"))

	for _, name := range []string{mirror.IndexFileName, "Hotel.url", "12.jpg"} {
		exists, err := afero.Exists(fs, filepath.Join("/run", "Mixed", name))
		require.NoError(t, err)
		require.True(t, exists, "expected %s", name)
	}

	require.Len(t, progress.Runs, 1)
	require.Equal(t, 5, progress.Runs[0].Total)
	require.Equal(t, 5, progress.Runs[0].Increments)
}

func TestDownloadCollection_ParentDirName(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := testutil.NewFakeRemote()
	remote.SetJSON("/13.json", `{"name":"..","items":[]}`)
	svc, _, _ := newTestService(remote, fs)

	report := svc.DownloadCollection(context.Background(), mirror.Collection{ID: "13", Name: ".."}, "/run/root")

	require.Equal(t, mirror.StatusDone, report.Status)
	require.Equal(t, filepath.Join("/run/root", "--"), report.Dir)

	exists, err := afero.Exists(fs, filepath.Join("/run", mirror.IndexFileName))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestDownloadAll(t *testing.T) {
	fs := afero.NewMemMapFs()
	remote := tripRemote()
	remote.SetJSONError("/20.json", errors.New("404 Not Found"))
	remote.SetJSON("/30.json", `{"name":"Links","items":[{"id":9,"type":"link","name":"Docs","link":"https://docs.example"}]}`)
	svc, _, _ := newTestService(remote, fs)

	collections := []mirror.Collection{
		{ID: "10", Name: "Trip"},
		{ID: "20", Name: "Broken"},
		{ID: "30", Name: "Links"},
	}

	var seen []string
	reports, err := svc.DownloadAll(context.Background(), collections, "/run", func(r *mirror.CollectionReport) {
		seen = append(seen, r.Collection.ID+":"+r.Status.String())
	})

	require.NoError(t, err)
	require.Len(t, reports, 3)
	require.Equal(t, []string{"10:done", "20:aborted", "30:done"}, seen)

	data, err := afero.ReadFile(fs, filepath.Join("/run", "Links", "Docs.url"))
	require.NoError(t, err)
	require.Equal(t, "[InternetShortcut]\nURL=https://docs.example", string(data))
}

func TestDownloadAll_NoCollections(t *testing.T) {
	fs := afero.NewMemMapFs()
	svc, progress, _ := newTestService(testutil.NewFakeRemote(), fs)

	reports, err := svc.DownloadAll(context.Background(), nil, "/run", nil)

	require.NoError(t, err)
	require.Empty(t, reports)
	require.Empty(t, progress.Runs)

	exists, err := afero.DirExists(fs, "/run")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestDownloadAll_BaseDirFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	remote := tripRemote()
	svc, _, _ := newTestService(remote, fs)

	_, err := svc.DownloadAll(context.Background(), []mirror.Collection{{ID: "10", Name: "Trip"}}, "/run", nil)

	require.Error(t, err)
	require.Empty(t, remote.JSONCalls)
}
