// Package rundir creates per-run working directories without ever overwriting old ones.
//
// A directory that already exists is renamed to <dir>.<unix-timestamp>.bak before a
// fresh one is created, so earlier run artifacts are shadowed, never lost.
//
// NextIndex scans the parent directory and is not safe against concurrent
// invocations for the same base name: two of them can pick the same index.
package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/10amc-2/disorder/internal/utils"
	"k8s.io/utils/clock"
)

// MissingCompanionFileError is returned when a required companion of the
// structure file (e.g. its .psf topology) does not exist.
type MissingCompanionFileError struct {
	Structure string
	Companion string
}

func (e *MissingCompanionFileError) Error() string {
	return fmt.Sprintf("companion file %s for structure %s not found", e.Companion, e.Structure)
}

// IsMissingCompanion checks if an error is a MissingCompanionFileError
func IsMissingCompanion(err error) bool {
	var mcf *MissingCompanionFileError
	return errors.As(err, &mcf)
}

// Options configures a Manager.
type Options struct {
	Root              string   // Parent directory of all run directories
	CompanionExts     []string // Extensions copied next to the structure file (e.g. ".psf")
	RequireCompanions bool     // Fail when a companion is missing instead of skipping it
}

// Manager creates and versions run directories under Options.Root.
type Manager struct {
	opts  Options
	clock clock.PassiveClock
}

// NewManager creates a Manager.
func NewManager(opts Options, clk clock.PassiveClock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{opts: opts, clock: clk}
}

// Name returns the directory name for a run: <base>_run<index><suffix>.
func Name(base string, index int, suffix string) string {
	return fmt.Sprintf("%s_run%d%s", base, index, suffix)
}

// Path returns the full path of a run directory.
func (m *Manager) Path(base string, index int, suffix string) string {
	return filepath.Join(m.opts.Root, Name(base, index, suffix))
}

// NextIndex returns one more than the number of live run directories for base and suffix.
func (m *Manager) NextIndex(base, suffix string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(m.opts.Root, globEscape(base)+"_run*"+globEscape(suffix)))
	if err != nil {
		return 0, fmt.Errorf("failed to scan run directories: %w", err)
	}
	count := 0
	for _, match := range matches {
		if !isRunName(filepath.Base(match), base, suffix) || !utils.DirExists(match) {
			continue
		}
		count++
	}
	utils.PrintDebug("Found %d existing run directories for %s", count, utils.StyleName(base))
	return count + 1, nil
}

// CheckInputs verifies the structure file and its required companions exist.
func (m *Manager) CheckInputs(structure string) error {
	if !utils.FileExists(structure) {
		return fmt.Errorf("structure file %s not found", structure)
	}
	if !m.opts.RequireCompanions {
		return nil
	}
	for _, companion := range m.companions(structure) {
		if !utils.FileExists(companion) {
			return &MissingCompanionFileError{Structure: structure, Companion: companion}
		}
	}
	return nil
}

// Prepare returns a fresh, empty run directory, backing up any existing one.
func (m *Manager) Prepare(base string, index int, suffix string) (string, error) {
	dir := m.Path(base, index, suffix)

	if utils.PathExists(dir) {
		backup, err := m.Backup(dir)
		if err != nil {
			return "", err
		}
		utils.PrintNote("Backed up existing %s to %s", utils.StylePath(dir), utils.StylePath(backup))
	}

	if err := os.MkdirAll(dir, utils.PermDir); err != nil {
		return "", fmt.Errorf("failed to create run directory %s: %w", dir, err)
	}
	return dir, nil
}

// Backup renames dir to <dir>.<unix-timestamp>.bak and returns the new path.
// A counter is appended to the timestamp if that name is already taken.
func (m *Manager) Backup(dir string) (string, error) {
	ts := strconv.FormatInt(m.clock.Now().Unix(), 10)
	backup := fmt.Sprintf("%s.%s.bak", dir, ts)
	for i := 1; utils.PathExists(backup); i++ {
		backup = fmt.Sprintf("%s.%s-%d.bak", dir, ts, i)
	}
	if err := os.Rename(dir, backup); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", dir, err)
	}
	return backup, nil
}

// Populate copies the structure file and its companions into dir.
// Missing optional companions are skipped.
func (m *Manager) Populate(dir, structure string) ([]string, error) {
	if err := m.CheckInputs(structure); err != nil {
		return nil, err
	}

	copied := make([]string, 0, 1+len(m.opts.CompanionExts))
	dst, err := utils.CopyInto(structure, dir)
	if err != nil {
		return nil, err
	}
	copied = append(copied, dst)

	for _, companion := range m.companions(structure) {
		if !utils.FileExists(companion) {
			utils.PrintDebug("Skipping missing companion %s", companion)
			continue
		}
		dst, err := utils.CopyInto(companion, dir)
		if err != nil {
			return copied, err
		}
		copied = append(copied, dst)
	}
	return copied, nil
}

func (m *Manager) companions(structure string) []string {
	stem := strings.TrimSuffix(structure, filepath.Ext(structure))
	out := make([]string, 0, len(m.opts.CompanionExts))
	for _, ext := range m.opts.CompanionExts {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, stem+ext)
	}
	return out
}

// isRunName reports whether name is <base>_run<digits><suffix>, which excludes
// backups and runs with a different suffix.
func isRunName(name, base, suffix string) bool {
	rest, ok := strings.CutPrefix(name, base+"_run")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, suffix)
	if !ok || digits == "" {
		return false
	}
	_, err := strconv.Atoi(digits)
	return err == nil
}

// globEscape escapes glob metacharacters in a literal path component.
func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
