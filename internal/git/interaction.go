package git

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/bashhack/gitbackfill/internal/logger"
)

// Confirmation describes the history a run is about to write.
type Confirmation struct {
	RepoPath string
	Branch   string
	Mode     string
	Start    time.Time
	End      time.Time
}

// Question is the prompt shown for c.
func (c Confirmation) Question() string {
	branch := c.Branch
	if branch == "" {
		branch = "the current branch"
	}
	return fmt.Sprintf("Create backdated commits (%s cadence, %s to %s) on %s in %s?",
		c.Mode, c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"), branch, c.RepoPath)
}

// UserInteractor asks the user to approve a run before history is written.
type UserInteractor interface {
	Confirm(c Confirmation) bool
}

// NewInteractor prompts on in when it is a terminal and declines every
// run otherwise, so unattended runs need an explicit --yes.
func NewInteractor(in io.Reader, log logger.Logger) UserInteractor {
	if !isTerminal(in) {
		return NonInteractiveInteractor{Logger: log}
	}
	return &DefaultInteractor{Reader: in, Logger: log}
}

// isTerminal reports whether r can answer a prompt. Readers other than
// files (tests, pipes wrapped in buffers) are treated as terminals.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return true
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DefaultInteractor reads the answer from Reader. Only "y" or "yes"
// approves; an empty line or a read error declines.
type DefaultInteractor struct {
	Reader io.Reader
	Logger logger.Logger
}

func (i *DefaultInteractor) Confirm(c Confirmation) bool {
	i.Logger.WarningToUser("Commits are added to the branch as they are made and are not rolled back.")
	i.Logger.StatusMessage("%s [y/N]: ", c.Question())

	answer, err := bufio.NewReader(i.Reader).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// NonInteractiveInteractor declines every run and says why.
type NonInteractiveInteractor struct {
	Logger logger.Logger
}

func (i NonInteractiveInteractor) Confirm(Confirmation) bool {
	if i.Logger != nil {
		i.Logger.WarningToUser("No terminal to confirm on; pass --yes to run unattended.")
	}
	return false
}
