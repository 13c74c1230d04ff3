package git

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashhack/gitbackfill/internal/logger"
)

func testConfirmation() Confirmation {
	return Confirmation{
		RepoPath: "/work/site",
		Branch:   "main",
		Mode:     "week",
		Start:    time.Date(2024, time.January, 1, 9, 0, 0, 0, time.Local),
		End:      time.Date(2024, time.May, 1, 18, 0, 0, 0, time.Local),
	}
}

func TestConfirmationQuestion(t *testing.T) {
	c := testConfirmation()
	assert.Equal(t, "Create backdated commits (week cadence, 2024-01-01 to 2024-05-01) on main in /work/site?", c.Question())

	c.Branch = ""
	assert.Contains(t, c.Question(), "on the current branch in /work/site")
}

func TestConfirmScenarios(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input    io.Reader
		approved bool
	}{
		"Yes":                    {input: bytes.NewBufferString("yes\n"), approved: true},
		"UpperCaseY":             {input: bytes.NewBufferString("  Y\n"), approved: true},
		"WithoutNewline":         {input: bytes.NewBufferString("y"), approved: true},
		"No":                     {input: bytes.NewBufferString("no\n")},
		"EmptyLineDefault":       {input: bytes.NewBufferString("\n")},
		"OtherWordStartingWithY": {input: bytes.NewBufferString("yesterday\n")},
		"ReadError":              {input: &errorReader{}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}
			interactor := &DefaultInteractor{
				Reader: tc.input,
				Logger: logger.NewWithOutput(false, "", false, out, out),
			}

			assert.Equal(t, tc.approved, interactor.Confirm(testConfirmation()))
			assert.Contains(t, out.String(), testConfirmation().Question()+" [y/N]")
			assert.Contains(t, out.String(), "not rolled back")
		})
	}
}

func TestNewInteractor(t *testing.T) {
	out := &bytes.Buffer{}
	log := logger.NewWithOutput(false, "", false, out, out)

	// A regular file is not a terminal.
	f, err := os.Create(filepath.Join(t.TempDir(), "answers"))
	require.NoError(t, err)
	defer f.Close()

	interactor := NewInteractor(f, log)
	require.IsType(t, NonInteractiveInteractor{}, interactor)
	assert.False(t, interactor.Confirm(testConfirmation()))
	assert.Contains(t, out.String(), "pass --yes")

	assert.IsType(t, &DefaultInteractor{}, NewInteractor(bytes.NewBufferString("y\n"), log))
}

func TestNonInteractiveWithoutLogger(t *testing.T) {
	assert.False(t, NonInteractiveInteractor{}.Confirm(testConfirmation()))
}

// errorReader is a mock io.Reader that always returns an error
type errorReader struct{}

func (e *errorReader) Read(p []byte) (n int, err error) {
	return 0, io.ErrUnexpectedEOF
}
