package depthmatch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TrialRecord is the persisted outcome of one main-block trial.
type TrialRecord struct {
	TrialNumber       int
	Trial             Trial
	AdjustedAmplitude float64
	Confidence        float64
	ReactionTime      float64 // seconds
	Timestamp         time.Time
}

const (
	recordTimestampLayout = "2006-01-02T15:04:05.000"
	fileTimestampLayout   = "20060102_150405"
)

var csvHeader = []string{
	"TrialNumber", "R1", "R2", "RotationSpeed", "Direction",
	"AdjustedAmplitude", "Confidence", "ReactionTime", "Timestamp",
}

var ErrInvalidParticipant = errors.New("invalid participant id")

// Recorder accumulates main-block records in execution order and writes them
// to one CSV file per session.
//
// Flush is meant to be called exactly once, when the session reaches End.
// Calling it again is not guarded: it rewrites the same rows to a file named
// from the given timestamp, overwriting an earlier flush with the same name.
type Recorder struct {
	dir     string
	records []TrialRecord
}

func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir, records: make([]TrialRecord, 0, MainTrialCount)}
}

// Append adds a record. The caller guarantees TrialNumber is unique and
// strictly increasing.
func (r *Recorder) Append(rec TrialRecord) {
	r.records = append(r.records, rec)
}

func (r *Recorder) Len() int {
	return len(r.records)
}

// Records returns a copy of the accumulated records.
func (r *Recorder) Records() []TrialRecord {
	out := make([]TrialRecord, len(r.records))
	copy(out, r.records)
	return out
}

// WriteCSV writes the header and every record to w.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range r.records {
		if err := cw.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("writing trial %d: %w", rec.TrialNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Flush writes the session file and returns its path.
func (r *Recorder) Flush(participantID string, sessionStart time.Time) (string, error) {
	if err := validateParticipantID(participantID); err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(r.dir, SessionFileName(participantID, sessionStart))
	tmp, err := os.CreateTemp(r.dir, ".session-*.csv")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := r.WriteCSV(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving session file into place: %w", err)
	}
	return path, nil
}

// SessionFileName embeds the participant and session start time.
func SessionFileName(participantID string, sessionStart time.Time) string {
	return participantID + "_" + sessionStart.Format(fileTimestampLayout) + ".csv"
}

func validateParticipantID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidParticipant)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidParticipant, id)
	}
	return nil
}

func recordRow(rec TrialRecord) []string {
	return []string{
		strconv.Itoa(rec.TrialNumber),
		formatFloat(rec.Trial.R1),
		formatFloat(rec.Trial.R2),
		formatFloat(rec.Trial.RotationSpeed),
		strconv.Itoa(int(rec.Trial.Direction)),
		formatFloat(rec.AdjustedAmplitude),
		formatFloat(rec.Confidence),
		formatFloat(rec.ReactionTime),
		rec.Timestamp.Format(recordTimestampLayout),
	}
}

// 6 significant digits, independent of platform formatting.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}
