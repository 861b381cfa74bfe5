package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/xid"
)

// Files written in every process directory.
const (
	MetadataFileName  = "md.txt"
	TraceFileName     = "events.csv"
	QueueLenFileName  = "queue_len.csv"
	SQLiteTraceName   = "events"
	processDirSuffix  = "_log"
	experimentDirMode = 0o755
)

// NewExperimentName returns a unique experiment name.
func NewExperimentName() string {
	return "exp_" + xid.New().String()
}

// ExperimentDir returns the directory that holds the process directories of
// an experiment.
func ExperimentDir(logRoot, experiment string) string {
	return filepath.Join(logRoot, experiment)
}

// ProcessDir returns the directory of one process of an experiment.
func ProcessDir(logRoot, experiment, name string) string {
	return filepath.Join(ExperimentDir(logRoot, experiment),
		name+processDirSuffix)
}

// Metadata describes a process in md.txt.
type Metadata struct {
	Name          string
	Port          int
	ClockSpeed    float64
	ExperimentDir string
}

// String renders the metadata file.
func (m Metadata) String() string {
	return fmt.Sprintf(
		"Name: %s\nPort: %d\nClock Speed: %s\nExperiment Directory: %s\n",
		m.Name,
		m.Port,
		strconv.FormatFloat(m.ClockSpeed, 'f', -1, 64),
		m.ExperimentDir)
}

// PrepareProcessDir creates the directory of a process and writes its
// metadata file. Existing files are overwritten.
func PrepareProcessDir(logRoot string, md Metadata) (string, error) {
	dir := ProcessDir(logRoot, md.ExperimentDir, md.Name)

	err := os.MkdirAll(dir, experimentDirMode)
	if err != nil {
		return "", fmt.Errorf("create process dir: %w", err)
	}

	err = os.WriteFile(filepath.Join(dir, MetadataFileName),
		[]byte(md.String()), 0o644)
	if err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	return dir, nil
}
