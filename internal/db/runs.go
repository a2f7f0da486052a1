package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/stride.report/internal/gait"
	"github.com/banshee-data/stride.report/internal/gait/contact"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// StatusOK marks a run that produced a result. Stopped runs store their
// issue kind as the status.
const StatusOK = "ok"

// Run is one stored analysis. Result and Issue are only loaded by GetRun.
type Run struct {
	ID           string        `json:"runId"`
	CreatedAt    time.Time     `json:"createdAt"`
	Source       string        `json:"source,omitempty"`
	Status       string        `json:"status"`
	InputFPS     model.Float   `json:"inputFps"`
	SlowMoFactor model.Float   `json:"slowMoFactor"`
	Direction    int           `json:"direction"`
	Summary      model.Summary `json:"summary"`
	Result       *model.Result `json:"result,omitempty"`
	Issue        *model.Issue  `json:"issue,omitempty"`
}

// HeelSample is the heel height of both legs at one sampled instant.
type HeelSample struct {
	T            float64     `json:"t"`
	LeftY        model.Float `json:"leftY"`
	RightY       model.Float `json:"rightY"`
	LeftContact  bool        `json:"leftContact"`
	RightContact bool        `json:"rightContact"`
}

// nullFloat stores NaN and infinities as NULL.
func nullFloat(f float64) sql.NullFloat64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}

func fromNull(n sql.NullFloat64) model.Float {
	if !n.Valid {
		return model.NaN()
	}
	return model.Float(n.Float64)
}

func nullJSON(v interface{}) (sql.NullString, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// SaveOutcome stores a finished run. source and createdAt describe runs
// that stopped on an issue; successful runs take both from the result.
func (db *DB) SaveOutcome(ctx context.Context, out *gait.Outcome, source string, createdAt time.Time) error {
	if out == nil || out.RunID == "" {
		return fmt.Errorf("outcome has no run id")
	}

	status := StatusOK
	slowMo := math.NaN()
	direction := 0
	var summary model.Summary
	var resultJSON, issueJSON sql.NullString
	var err error

	switch {
	case out.Result != nil:
		meta := out.Result.Meta
		source, createdAt = meta.Source, meta.CreatedAt
		slowMo, direction = meta.SlowMoFactor, meta.Direction
		summary = out.Result.Summary
		if resultJSON, err = nullJSON(out.Result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	case out.Issue != nil:
		status = string(out.Issue.Kind)
		if issueJSON, err = nullJSON(out.Issue); err != nil {
			return fmt.Errorf("failed to encode issue: %w", err)
		}
		summary = model.Summary{
			OverstrideRatioMedian: model.NaN(),
			KneeAngleMedian:       model.NaN(),
			TrunkLeanMedian:       model.NaN(),
			HeelStrikeRate:        model.NaN(),
			RetractSpeedMedian:    model.NaN(),
		}
	default:
		return fmt.Errorf("run %s has neither result nor issue", out.RunID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, created_unix_nanos, source, status, input_fps, slow_mo_factor,
			direction, contact_count, overstride_ratio_median, knee_angle_median,
			trunk_lean_median, heel_strike_rate, retract_speed_median,
			result_json, issue_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.RunID, createdAt.UnixNano(), source, status,
		nullFloat(out.InputFPS), nullFloat(slowMo),
		direction, summary.ContactCount,
		nullFloat(float64(summary.OverstrideRatioMedian)),
		nullFloat(float64(summary.KneeAngleMedian)),
		nullFloat(float64(summary.TrunkLeanMedian)),
		nullFloat(float64(summary.HeelStrikeRate)),
		nullFloat(float64(summary.RetractSpeedMedian)),
		resultJSON, issueJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", out.RunID, err)
	}

	if out.Result != nil {
		if err := insertContacts(ctx, tx, out.RunID, out.Result.Contacts.All); err != nil {
			return err
		}
	}
	if err := insertHeelSamples(ctx, tx, out); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", out.RunID, err)
	}
	logf("saved run %s (%s, %d samples)", out.RunID, status, len(out.Frames))
	return nil
}

func insertContacts(ctx context.Context, tx *sql.Tx, runID string, all []model.ContactMetric) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO contact_metrics (
			run_id, seq, t, leg, overstride_ratio, knee_angle, trunk_lean_deg,
			strike, retract_speed, leg_len, overstride
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare contact insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range all {
		if _, err := stmt.ExecContext(ctx,
			runID, i, m.T, string(m.Leg),
			nullFloat(float64(m.OverstrideRatio)),
			nullFloat(float64(m.KneeAngle)),
			nullFloat(float64(m.TrunkLeanDeg)),
			string(m.Strike),
			nullFloat(float64(m.RetractSpeed)),
			nullFloat(float64(m.LegLen)),
			nullFloat(float64(m.Overstride)),
		); err != nil {
			return fmt.Errorf("failed to insert contact %d: %w", i, err)
		}
	}
	return nil
}

func insertHeelSamples(ctx context.Context, tx *sql.Tx, out *gait.Outcome) error {
	if len(out.Frames) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO heel_samples (run_id, idx, t, left_y, right_y, left_contact, right_contact)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare heel sample insert: %w", err)
	}
	defer stmt.Close()

	left := contact.HeelSeries(out.Frames, model.LegLeft)
	right := contact.HeelSeries(out.Frames, model.LegRight)
	isLeft := indexSet(out.LeftPeaks)
	isRight := indexSet(out.RightPeaks)
	for i, f := range out.Frames {
		if _, err := stmt.ExecContext(ctx,
			out.RunID, i, f.T, nullFloat(left[i]), nullFloat(right[i]), isLeft[i], isRight[i],
		); err != nil {
			return fmt.Errorf("failed to insert heel sample %d: %w", i, err)
		}
	}
	return nil
}

func indexSet(idx []int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}

const runColumns = `run_id, created_unix_nanos, source, status, input_fps, slow_mo_factor,
	direction, contact_count, overstride_ratio_median, knee_angle_median,
	trunk_lean_median, heel_strike_rate, retract_speed_median`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner, extra ...interface{}) (*Run, error) {
	var (
		r                                      Run
		created                                int64
		inputFPS, slowMo                       sql.NullFloat64
		overstride, knee, trunk, heel, retract sql.NullFloat64
	)
	dest := []interface{}{
		&r.ID, &created, &r.Source, &r.Status, &inputFPS, &slowMo,
		&r.Direction, &r.Summary.ContactCount, &overstride, &knee,
		&trunk, &heel, &retract,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created).UTC()
	r.InputFPS = fromNull(inputFPS)
	r.SlowMoFactor = fromNull(slowMo)
	r.Summary.OverstrideRatioMedian = fromNull(overstride)
	r.Summary.KneeAngleMedian = fromNull(knee)
	r.Summary.TrunkLeanMedian = fromNull(trunk)
	r.Summary.HeelStrikeRate = fromNull(heel)
	r.Summary.RetractSpeedMedian = fromNull(retract)
	return &r, nil
}

// GetRun loads a run with its result or issue.
func (db *DB) GetRun(ctx context.Context, id string) (*Run, error) {
	var resultJSON, issueJSON sql.NullString
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+`, result_json, issue_json FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row, &resultJSON, &issueJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	if resultJSON.Valid {
		r.Result = &model.Result{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, fmt.Errorf("failed to decode result of run %s: %w", id, err)
		}
	}
	if issueJSON.Valid {
		r.Issue = &model.Issue{}
		if err := json.Unmarshal([]byte(issueJSON.String), r.Issue); err != nil {
			return nil, fmt.Errorf("failed to decode issue of run %s: %w", id, err)
		}
	}
	return r, nil
}

// ListRuns returns the most recent runs first, without results.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_unix_nanos DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// ContactMetrics returns the stored contacts of a run in time order.
func (db *DB) ContactMetrics(ctx context.Context, id string) ([]model.ContactMetric, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t, leg, overstride_ratio, knee_angle, trunk_lean_deg, strike,
			retract_speed, leg_len, overstride
		FROM contact_metrics WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts of run %s: %w", id, err)
	}
	defer rows.Close()

	var out []model.ContactMetric
	for rows.Next() {
		var (
			m                                               model.ContactMetric
			leg, strike                                     string
			ratio, knee, trunk, retract, legLen, overstride sql.NullFloat64
		)
		if err := rows.Scan(&m.T, &leg, &ratio, &knee, &trunk, &strike, &retract, &legLen, &overstride); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		m.Leg = model.Leg(leg)
		m.Strike = model.Strike(strike)
		m.OverstrideRatio = fromNull(ratio)
		m.KneeAngle = fromNull(knee)
		m.TrunkLeanDeg = fromNull(trunk)
		m.RetractSpeed = fromNull(retract)
		m.LegLen = fromNull(legLen)
		m.Overstride = fromNull(overstride)
		out = append(out, m)
	}
	return out, rows.Err()
}

// HeelSamples returns the stored heel series of a run.
func (db *DB) HeelSamples(ctx context.Context, id string) ([]HeelSample, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t, left_y, right_y, left_contact, right_contact
		FROM heel_samples WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query heel samples of run %s: %w", id, err)
	}
	defer rows.Close()

	var out []HeelSample
	for rows.Next() {
		var (
			s           HeelSample
			left, right sql.NullFloat64
		)
		if err := rows.Scan(&s.T, &left, &right, &s.LeftContact, &s.RightContact); err != nil {
			return nil, fmt.Errorf("failed to scan heel sample: %w", err)
		}
		s.LeftY = fromNull(left)
		s.RightY = fromNull(right)
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and everything stored with it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
