// Package report persists run results as case directories: summary.json,
// the counterexamples, a README with replay instructions and an optional
// zstd-compressed tar of the whole case.
package report

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"parity/internal/config"
	"parity/internal/runinfo"
	"parity/internal/runner"
	"parity/internal/util"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
)

// Reporter writes case artifacts to disk.
type Reporter struct {
	OutputDir   string
	UseUUIDPath bool

	mu      sync.Mutex
	caseSeq int
}

// Case describes a report directory.
type Case struct {
	ID  string
	Dir string
}

// Summary captures the persisted metadata for a run.
type Summary struct {
	EntryPoint     string              `json:"entry_point"`
	RunID          string              `json:"run_id"`
	Seed           int64               `json:"seed"`
	Passed         bool                `json:"passed"`
	Total          int                 `json:"total"`
	Failures       int                 `json:"failures"`
	Discarded      int                 `json:"discarded"`
	GaveUp         bool                `json:"gave_up"`
	StoppedEarly   bool                `json:"stopped_early"`
	Canceled       bool                `json:"canceled"`
	Config         config.RunConfig    `json:"config"`
	Rounds         []runner.RoundStats `json:"rounds"`
	FirstFailure   *Counterexample     `json:"first_failure,omitempty"`
	RunInfo        *runinfo.BasicInfo  `json:"run_info,omitempty"`
	UploadLocation string              `json:"upload_location"`
	CaseID         string              `json:"case_id"`
	CaseDir        string              `json:"case_dir"`
	ArchiveName    string              `json:"archive_name"`
	ArchiveCodec   string              `json:"archive_codec"`
	DurationMs     int64               `json:"duration_ms"`
	Timestamp      string              `json:"timestamp"`
	// Details holds the verdict counts and failure reasons.
	Details map[string]any `json:"details"`
}

// Counterexample is a trial rendered for humans. Values are printed with %#v
// since arbitrary user types need not be JSON encodable.
type Counterexample struct {
	Index      int      `json:"index"`
	Round      int      `json:"round"`
	Complexity int      `json:"complexity"`
	Seed       int64    `json:"seed"`
	Attempt    int      `json:"attempt,omitempty"`
	Edge       bool     `json:"edge,omitempty"`
	EdgeRow    []int    `json:"edge_row,omitempty"`
	Args       []string `json:"args"`
	Verdict    string   `json:"verdict"`
	Reason     string   `json:"reason"`
	Reference  string   `json:"reference"`
	Submission string   `json:"submission"`
}

// New creates a reporter that writes to outputDir.
func New(outputDir string) *Reporter {
	return &Reporter{OutputDir: outputDir}
}

// NewCase allocates a new case directory.
func (r *Reporter) NewCase() (Case, error) {
	r.mu.Lock()
	r.caseSeq++
	seq := r.caseSeq
	r.mu.Unlock()
	caseID := uuid.New().String()
	if v7, err := uuid.NewV7(); err == nil {
		caseID = v7.String()
	}
	caseDir := fmt.Sprintf("case_%04d_%s", seq, caseID)
	if r.UseUUIDPath {
		caseDir = caseID
	}
	dir := filepath.Join(r.OutputDir, caseDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Case{}, err
	}
	return Case{ID: caseID, Dir: dir}, nil
}

const (
	CaseArchiveName  = "case.tar.zst"
	CaseArchiveCodec = "zstd"
)

// NewSummary derives the persisted summary from a finished run.
func NewSummary(res *runner.RunResult, info *runinfo.BasicInfo) Summary {
	counts := make(map[string]any, len(res.Counts))
	for v, n := range res.Counts {
		counts[v.String()] = n
	}
	reasons := make(map[string]any, len(res.Reasons))
	for k, n := range res.Reasons {
		reasons[k] = n
	}
	s := Summary{
		EntryPoint:   res.EntryPoint,
		RunID:        res.ID,
		Seed:         res.Seed,
		Passed:       res.Passed(),
		Total:        res.Total,
		Failures:     res.Failures(),
		Discarded:    res.Discarded,
		GaveUp:       res.GaveUp,
		StoppedEarly: res.StoppedEarly,
		Canceled:     res.Canceled,
		Config:       res.Config,
		Rounds:       res.Rounds,
		RunInfo:      info,
		DurationMs:   res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
		Timestamp:    res.FinishedAt.UTC().Format(time.RFC3339),
		Details: map[string]any{
			"counts":  counts,
			"reasons": reasons,
		},
	}
	if len(res.Counterexamples) > 0 {
		ce := NewCounterexample(res.Counterexamples[0])
		s.FirstFailure = &ce
	}
	return s
}

// NewCounterexample renders one trial.
func NewCounterexample(t runner.Trial) Counterexample {
	args := make([]string, len(t.Inputs.Args))
	for i, a := range t.Inputs.Args {
		args[i] = fmt.Sprintf("%#v", a)
	}
	return Counterexample{
		Index:      t.Inputs.Index,
		Round:      t.Inputs.Round,
		Complexity: t.Inputs.Complexity,
		Seed:       t.Inputs.Seed,
		Attempt:    t.Inputs.Attempt,
		Edge:       t.Inputs.Edge(),
		EdgeRow:    t.Inputs.EdgeRow,
		Args:       args,
		Verdict:    t.Verdict.String(),
		Reason:     t.Reason,
		Reference:  t.Reference.String(),
		Submission: t.Submission.String(),
	}
}

// Write persists res as a new case and returns the case and its summary.
// The archive is written last so it contains every other file.
func (r *Reporter) Write(res *runner.RunResult, info *runinfo.BasicInfo, archive bool) (Case, Summary, error) {
	c, err := r.NewCase()
	if err != nil {
		return Case{}, Summary{}, err
	}
	summary := NewSummary(res, info)
	summary.CaseID = c.ID
	summary.CaseDir = c.Dir
	if err := r.WriteText(c, "README.md", readme(res)); err != nil {
		return c, summary, err
	}
	if err := r.WriteCounterexamples(c, res.Counterexamples); err != nil {
		return c, summary, err
	}
	if err := r.WriteSummary(c, summary); err != nil {
		return c, summary, err
	}
	if archive {
		name, codec, err := r.WriteCaseArchive(c)
		if err != nil {
			util.Warnf("case archive failed case=%s err=%v", c.ID, err)
		} else {
			summary.ArchiveName = name
			summary.ArchiveCodec = codec
			if err := r.WriteSummary(c, summary); err != nil {
				return c, summary, err
			}
		}
	}
	return c, summary, nil
}

// WriteSummary writes summary.json into the case directory.
func (r *Reporter) WriteSummary(c Case, summary Summary) error {
	f, err := os.Create(filepath.Join(c.Dir, "summary.json"))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(f, "summary output")
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(summary)
}

// WriteCounterexamples writes counterexamples.json into the case directory.
func (r *Reporter) WriteCounterexamples(c Case, trials []runner.Trial) error {
	out := make([]Counterexample, len(trials))
	for i, t := range trials {
		out[i] = NewCounterexample(t)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return r.WriteText(c, "counterexamples.json", string(data)+"\n")
}

// WriteText writes raw text content into the case directory.
func (r *Reporter) WriteText(c Case, name string, content string) error {
	path := filepath.Join(c.Dir, name)
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

func readme(res *runner.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", res.EntryPoint)
	fmt.Fprintf(&b, "- Result: %s\n", resultWord(res))
	fmt.Fprintf(&b, "- Trials: %d (%s)\n", res.Total, res.CountsString())
	fmt.Fprintf(&b, "- Seed: %d\n\n", res.Seed)
	b.WriteString("## Reproduce\n\n")
	fmt.Fprintf(&b, "Set `seed: %d` and `problems: [%s]` in the config and run `parity -config <file>`.\n", res.Seed, res.EntryPoint)
	b.WriteString("Each counterexample in counterexamples.json records its trial seed; inputs depend only on the run seed and the trial index.\n")
	return b.String()
}

func resultWord(res *runner.RunResult) string {
	switch {
	case res.Canceled:
		return "canceled"
	case res.GaveUp:
		return "gave up"
	case res.Passed():
		return "passed"
	default:
		return "failed"
	}
}

// WriteCaseArchive creates a compressed archive for the case directory.
func (r *Reporter) WriteCaseArchive(c Case) (name string, codec string, err error) {
	archivePath := filepath.Join(c.Dir, CaseArchiveName)
	if removeErr := os.Remove(archivePath); removeErr != nil && !os.IsNotExist(removeErr) {
		return "", "", removeErr
	}
	defer func() {
		if err != nil {
			_ = os.Remove(archivePath)
		}
	}()
	file, err := os.Create(archivePath)
	if err != nil {
		return "", "", err
	}
	defer util.CloseWithErr(file, "archive output")

	zw, err := zstd.NewWriter(file)
	if err != nil {
		return "", "", err
	}
	defer func() {
		if closeErr := zw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	tw := tar.NewWriter(zw)
	defer func() {
		if closeErr := tw.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()

	walkErr := filepath.WalkDir(c.Dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path == archivePath {
			return nil
		}
		rel, err := filepath.Rel(c.Dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(tw, src); err != nil {
			util.CloseWithErr(src, "archive source")
			return err
		}
		util.CloseWithErr(src, "archive source")
		return nil
	})
	if walkErr != nil {
		return "", "", walkErr
	}
	return CaseArchiveName, CaseArchiveCodec, nil
}
