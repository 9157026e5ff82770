package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"skycast/internal/types"
)

// snapshotExtension is the file suffix for persisted model snapshots.
const snapshotExtension = ".model.zst"

// Snapshot is the on-disk envelope for a trained model. Each snapshot gets a
// unique ID so retrainings of the same variable can be told apart in logs.
type Snapshot struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Model     HarmonicModel `json:"model"`
}

// Store persists trained models as zstd-compressed JSON snapshots, one file
// per variable, under a single directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir. The directory is created if it
// does not exist.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to create model directory %s", dir),
			err,
		)
	}
	return &Store{dir: dir}, nil
}

// path returns the snapshot file path for a variable.
func (s *Store) path(v types.Variable) string {
	return filepath.Join(s.dir, string(v)+snapshotExtension)
}

// Save writes a new snapshot for the model's variable, replacing any
// previous snapshot. The write goes through a temp file and rename so a
// crash mid-write never leaves a truncated snapshot behind.
func (s *Store) Save(model *HarmonicModel, createdAt time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: createdAt.UTC(),
		Model:     *model,
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to encode %s snapshot", model.Variable),
			err,
		)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModel, "failed to initialize zstd encoder", err)
	}
	compressed := enc.EncodeAll(raw, nil)
	enc.Close()

	final := s.path(model.Variable)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to write %s snapshot", model.Variable),
			err,
		)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to publish %s snapshot", model.Variable),
			err,
		)
	}
	return snap, nil
}

// Load reads and decodes the snapshot for a single variable.
func (s *Store) Load(v types.Variable) (*Snapshot, error) {
	compressed, err := os.ReadFile(s.path(v))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodePredictionUnavailable,
				fmt.Sprintf("no trained model for variable %s", v),
				err,
				map[string]any{"variable": string(v), "path": s.path(v)},
			)
		}
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to read %s snapshot", v),
			err,
		)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalModel, "failed to initialize zstd decoder", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to decompress %s snapshot", v),
			err,
		)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalModel,
			fmt.Sprintf("failed to decode %s snapshot", v),
			err,
		)
	}
	return &snap, nil
}

// LoadAll loads the snapshot for every known variable. Missing or corrupt
// snapshots fail the whole load; a partial model set cannot serve aligned
// forecasts.
func (s *Store) LoadAll() (map[types.Variable]*Snapshot, error) {
	snaps := make(map[types.Variable]*Snapshot, len(types.AllVariables()))
	for _, v := range types.AllVariables() {
		snap, err := s.Load(v)
		if err != nil {
			return nil, err
		}
		snaps[v] = snap
	}
	return snaps, nil
}

// IntegrityIssue describes a single problem found by Verify.
type IntegrityIssue struct {
	Variable types.Variable
	Problem  string
}

// Verify checks every known variable's snapshot: the file must exist,
// decompress, decode, carry the expected variable name, and hold a full
// coefficient vector. It returns all issues found rather than stopping at
// the first.
func (s *Store) Verify() []IntegrityIssue {
	var issues []IntegrityIssue
	for _, v := range types.AllVariables() {
		snap, err := s.Load(v)
		if err != nil {
			issues = append(issues, IntegrityIssue{Variable: v, Problem: err.Error()})
			continue
		}
		if snap.Model.Variable != v {
			issues = append(issues, IntegrityIssue{
				Variable: v,
				Problem:  fmt.Sprintf("snapshot holds model for %q", snap.Model.Variable),
			})
		}
		if len(snap.Model.Coefficients) != featureCount {
			issues = append(issues, IntegrityIssue{
				Variable: v,
				Problem:  fmt.Sprintf("model has %d coefficients, want %d", len(snap.Model.Coefficients), featureCount),
			})
		}
		if snap.ID == "" {
			issues = append(issues, IntegrityIssue{Variable: v, Problem: "snapshot missing id"})
		}
	}
	return issues
}
