package mutate

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bashhack/gitbackfill/internal/catalog"
	"github.com/bashhack/gitbackfill/internal/errors"
)

var stamp = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.Local)

func dayNote() Note {
	return Note{Timestamp: stamp}
}

func weekNote() Note {
	return Note{Timestamp: stamp, Label: "Week 3", Unit: 3}
}

// denyFs fails every write-mode open of one path.
type denyFs struct {
	afero.Fs
	deny string
}

func (d denyFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if name == d.deny && flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE) != 0 {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return d.Fs.OpenFile(name, flag, perm)
}

func readString(t *testing.T, fsys afero.Fs, name string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, name)
	require.NoError(t, err)
	return string(data)
}

func TestAppendEdits(t *testing.T) {
	tests := map[string]struct {
		path string
		note Note
		want string
	}{
		"CodeDay": {
			path: "src/App.tsx",
			note: dayNote(),
			want: "\n// Update: 2024-01-01 10:00\n// Code improvements and feature enhancements\n",
		},
		"CodeWeek": {
			path: "src/App.tsx",
			note: weekNote(),
			want: "\n// Development update - Week 3\n// Date: 2024-01-01 10:00\n// Code improvements and feature enhancements\n",
		},
		"PythonHash": {
			path: "scripts/build.py",
			note: Note{Timestamp: stamp, Description: "refactor"},
			want: "\n# Update: 2024-01-01 10:00\n# refactor\n",
		},
		"HTMLMarkup": {
			path: "index.html",
			note: Note{Timestamp: stamp, Description: "layout"},
			want: "\n<!-- Update: 2024-01-01 10:00 -->\n<!-- layout -->\n",
		},
		"Style": {
			path: "src/index.css",
			note: dayNote(),
			want: "\n/* Update: 2024-01-01 10:00 */\n/* Style enhancements and responsive fixes */\n",
		},
		"NarrativeDay": {
			path: "README.md",
			note: dayNote(),
			want: "\n## Update 2024-01-01\nEnhanced customization features and improved user experience.\n",
		},
		"NarrativeWeek": {
			path: "README.md",
			note: Note{Timestamp: stamp, Label: "Week 3", Unit: 3, Description: "Enhanced filters"},
			want: "\n### Week 3 Development\n- **Date**: 2024-01-01\n- **Updates**: Enhanced filters\n\n",
		},
		"OtherDay": {
			path: "notes.txt",
			note: dayNote(),
			want: "\nUpdate: 2024-01-01 10:00\n",
		},
		"OtherWeek": {
			path: "notes.txt",
			note: weekNote(),
			want: "\nDevelopment update - Week 3\nDate: 2024-01-01 10:00\n",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, tc.path, []byte("existing"), 0o644))

			res := New(fsys, Options{}).Apply(catalog.NewFile(tc.path), tc.note)
			require.NoError(t, res.Err)
			assert.False(t, res.Fallback)
			assert.Equal(t, tc.path, res.Path)
			assert.Equal(t, "existing"+tc.want, readString(t, fsys, tc.path))
		})
	}
}

func TestMissingJSONIsCreatedWithMarkerOnly(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := New(fsys, Options{Marker: MarkerScalar})

	res := m.Apply(catalog.NewFile("data/config.json"), dayNote())
	require.NoError(t, res.Err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(readString(t, fsys, "data/config.json")), &got))
	assert.Equal(t, map[string]any{"lastUpdated": "2024-01-01 10:00:00"}, got)
}

func TestScalarMarkerPreservesKeyOrder(t *testing.T) {
	fsys := afero.NewMemMapFs()
	src := `{"name":"app","version":"1.0.0","scripts":{"dev":"vite","build":"vite build"},"private":true}`
	require.NoError(t, afero.WriteFile(fsys, "package.json", []byte(src), 0o644))

	m := New(fsys, Options{Marker: MarkerScalar})
	res := m.Apply(catalog.NewFile("package.json"), dayNote())
	require.NoError(t, res.Err)

	want := `{
  "name": "app",
  "version": "1.0.0",
  "scripts": {
    "dev": "vite",
    "build": "vite build"
  },
  "private": true,
  "lastUpdated": "2024-01-01 10:00:00"
}
`
	assert.Equal(t, want, readString(t, fsys, "package.json"))

	// A second update leaves the existing marker untouched.
	later := Note{Timestamp: stamp.Add(48 * time.Hour)}
	res = m.Apply(catalog.NewFile("package.json"), later)
	require.NoError(t, res.Err)
	assert.Equal(t, want, readString(t, fsys, "package.json"))
}

func TestListMarkerAppends(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := New(fsys, Options{Marker: MarkerList})
	file := catalog.NewFile("src/data/stats.json")

	require.NoError(t, m.Apply(file, weekNote()).Err)
	next := Note{Timestamp: stamp.Add(24 * time.Hour), Label: "Week 4", Unit: 4, Description: "Filters"}
	require.NoError(t, m.Apply(file, next).Err)

	var got struct {
		Updates []updateRecord `json:"development_updates"`
	}
	require.NoError(t, json.Unmarshal([]byte(readString(t, fsys, file.Path)), &got))
	assert.Equal(t, []updateRecord{
		{Week: 3, Date: "2024-01-01 10:00", Description: "Initial development"},
		{Week: 4, Date: "2024-01-02 10:00", Description: "Filters"},
	}, got.Updates)
}

func TestListMarkerOnNonListFallsBack(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "a.json", []byte(`{"development_updates": "nope"}`), 0o644))

	res := New(fsys, Options{Marker: MarkerList, FallbackDir: "fb"}).Apply(catalog.NewFile("a.json"), weekNote())
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, errors.ErrMutationFailed)
	assert.Equal(t, "fb/update_1.txt", res.Path)
}

func TestMalformedStructuredGetsCommentLine(t *testing.T) {
	tests := map[string]struct {
		path string
		body string
		note Note
		want string
	}{
		"JSON":       {path: "bad.json", body: `{"a": 1,`, note: dayNote(), want: "\n// Update: 2024-01-01 10:00\n"},
		"JSONWeek":   {path: "bad.json", body: `{"a": 1,`, note: weekNote(), want: "\n// Week 3 - 2024-01-01 10:00\n"},
		"JSONEmpty":  {path: "empty.json", body: ``, note: dayNote(), want: "\n// Update: 2024-01-01 10:00\n"},
		"JSONTwoTop": {path: "two.json", body: `{} {}`, note: dayNote(), want: "\n// Update: 2024-01-01 10:00\n"},
		"YAML":       {path: "bad.yaml", body: "a: [1, 2\n", note: dayNote(), want: "\n# Update: 2024-01-01 10:00\n"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fsys, tc.path, []byte(tc.body), 0o644))

			res := New(fsys, Options{}).Apply(catalog.NewFile(tc.path), tc.note)
			require.NoError(t, res.Err)
			assert.False(t, res.Fallback)
			assert.Equal(t, tc.body+tc.want, readString(t, fsys, tc.path))
		})
	}
}

func TestYAMLStaysParseable(t *testing.T) {
	fsys := afero.NewMemMapFs()
	src := "# deployment values\nreplicas: 2\nimage:\n  tag: v1\n"
	require.NoError(t, afero.WriteFile(fsys, "deploy/values.yaml", []byte(src), 0o644))

	for _, marker := range []MarkerStyle{MarkerScalar, MarkerList} {
		res := New(fsys, Options{Marker: marker}).Apply(catalog.NewFile("deploy/values.yaml"), weekNote())
		require.NoError(t, res.Err, marker.String())
	}

	out := readString(t, fsys, "deploy/values.yaml")
	assert.Contains(t, out, "# deployment values")
	assert.Less(t, strings.Index(out, "replicas:"), strings.Index(out, "lastUpdated:"), "existing keys stay first")

	var got struct {
		Replicas    int               `yaml:"replicas"`
		Image       map[string]string `yaml:"image"`
		LastUpdated string            `yaml:"lastUpdated"`
		Updates     []updateRecord    `yaml:"development_updates"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Replicas)
	assert.Equal(t, "v1", got.Image["tag"])
	assert.Equal(t, "2024-01-01 10:00:00", got.LastUpdated)
	require.Len(t, got.Updates, 1)
	assert.Equal(t, 3, got.Updates[0].Week)
}

func TestMissingYAMLIsCreated(t *testing.T) {
	fsys := afero.NewMemMapFs()
	res := New(fsys, Options{}).Apply(catalog.NewFile("config/app.yml"), dayNote())
	require.NoError(t, res.Err)

	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(readString(t, fsys, "config/app.yml")), &got))
	assert.Equal(t, map[string]string{"lastUpdated": "2024-01-01 10:00:00"}, got)
}

func TestParentDirectoriesAreCreated(t *testing.T) {
	fsys := afero.NewMemMapFs()
	m := New(fsys, Options{})

	require.NoError(t, m.Apply(catalog.NewFile("src/components/deep/Widget.jsx"), dayNote()).Err)
	require.NoError(t, m.Apply(catalog.NewFile("TOPLEVEL.txt"), dayNote()).Err)

	isDir, err := afero.IsDir(fsys, "src/components/deep")
	require.NoError(t, err)
	assert.True(t, isDir)
	exists, err := afero.Exists(fsys, "TOPLEVEL.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestWriteFailureProducesFallbackArtifact(t *testing.T) {
	base := afero.NewMemMapFs()
	fsys := denyFs{Fs: base, deny: "src/App.tsx"}
	m := New(fsys, Options{FallbackDir: "src/utils/updates"})

	// update_1.txt already exists and must not be overwritten.
	require.NoError(t, afero.WriteFile(base, "src/utils/updates/update_1.txt", []byte("keep"), 0o644))

	res := m.Apply(catalog.NewFile("src/App.tsx"), dayNote())
	assert.True(t, res.Fallback)
	assert.Equal(t, "src/utils/updates/update_2.txt", res.Path)
	assert.ErrorIs(t, res.Err, errors.ErrMutationFailed)
	assert.ErrorIs(t, res.Err, os.ErrPermission)

	var mutErr *errors.MutationError
	require.ErrorAs(t, res.Err, &mutErr)
	assert.Equal(t, "src/App.tsx", mutErr.Path)

	assert.Equal(t, "keep", readString(t, base, "src/utils/updates/update_1.txt"))
	assert.Equal(t, "Project update 2\n", readString(t, base, "src/utils/updates/update_2.txt"))

	// The next attempt gets a fresh name.
	res = m.Apply(catalog.NewFile("src/App.tsx"), weekNote())
	assert.Equal(t, "src/utils/updates/update_3.txt", res.Path)
	assert.Equal(t, "Week 3 development update\nDate: 2024-01-01 10:00\n", readString(t, base, res.Path))
}

func TestReadOnlyFilesystemReportsBothErrors(t *testing.T) {
	fsys := afero.NewReadOnlyFs(afero.NewMemMapFs())
	m := New(fsys, Options{FallbackDir: "updates"})

	var res Result
	require.NotPanics(t, func() {
		res = m.Apply(catalog.NewFile("src/App.tsx"), dayNote())
	})
	assert.False(t, res.Fallback)
	assert.Empty(t, res.Path)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, errors.ErrMutationFailed)
	assert.Contains(t, res.Err.Error(), "fallback artifact")
}

func TestParseMarkerStyle(t *testing.T) {
	got, err := ParseMarkerStyle("List")
	require.NoError(t, err)
	assert.Equal(t, MarkerList, got)

	got, err = ParseMarkerStyle("")
	require.NoError(t, err)
	assert.Equal(t, MarkerScalar, got)

	_, err = ParseMarkerStyle("tree")
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}
