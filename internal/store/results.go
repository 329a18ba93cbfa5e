package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilupskalvis/labelkit/internal/models"
)

// ResultDB stores submitted results as queryable rows. The bbolt store
// remains the source of truth for editor state; this database exists for
// reporting and the HTTP API.
type ResultDB struct {
	db *sql.DB
}

// OpenResults opens the results database at path.
func OpenResults(path string) (*ResultDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open results database: %w", err)
	}
	r := &ResultDB{db: db}
	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// Close closes the database connection.
func (r *ResultDB) Close() error {
	return r.db.Close()
}

func (r *ResultDB) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS annotations (
		id TEXT PRIMARY KEY,
		task_id TEXT,
		created_by TEXT,
		created_at DATETIME,
		submitted_at DATETIME,
		ground_truth BOOLEAN DEFAULT FALSE,
		skipped BOOLEAN DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		annotation_id TEXT NOT NULL,
		region_id TEXT,
		from_name TEXT,
		to_name TEXT,
		result_type TEXT NOT NULL,
		labels TEXT,
		item JSON NOT NULL,
		FOREIGN KEY(annotation_id) REFERENCES annotations(id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_annotation ON results(annotation_id);
	CREATE INDEX IF NOT EXISTS idx_results_type ON results(result_type);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("create results schema: %w", err)
	}
	return nil
}

// InsertSubmission replaces the stored rows for one submitted annotation.
func (r *ResultDB) InsertSubmission(rec *models.AnnotationRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin submission transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO annotations (id, task_id, created_by, created_at, submitted_at, ground_truth, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET submitted_at=excluded.submitted_at,
			ground_truth=excluded.ground_truth, skipped=excluded.skipped`,
		rec.ID, rec.TaskID, rec.CreatedBy, rec.CreatedAt, time.Now(), rec.GroundTruth, rec.Skipped)
	if err != nil {
		return fmt.Errorf("upsert annotation row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM results WHERE annotation_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("clear previous results: %w", err)
	}

	for i := range rec.Result {
		item := &rec.Result[i]
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal result item: %w", err)
		}
		labels := strings.Join(item.Value.LabelList(item.Type), ",")
		_, err = tx.Exec(`
			INSERT INTO results (annotation_id, region_id, from_name, to_name, result_type, labels, item)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, item.ID, item.FromName, item.ToName, string(item.Type), labels, data)
		if err != nil {
			return fmt.Errorf("insert result row: %w", err)
		}
	}
	return tx.Commit()
}

// GetResults reads back the result array for one annotation.
func (r *ResultDB) GetResults(annotationID string) ([]models.ResultItem, error) {
	rows, err := r.db.Query(`SELECT item FROM results WHERE annotation_id = ? ORDER BY id`, annotationID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []models.ResultItem
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		var item models.ResultItem
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("unmarshal result item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListSubmitted returns the ids of annotations with stored rows.
func (r *ResultDB) ListSubmitted() ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM annotations ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TypeCount is one row of the per-type result statistics.
type TypeCount struct {
	Type  string
	Count int64
}

// LabelCount is one row of the per-label statistics.
type LabelCount struct {
	Label string
	Count int64
}

// Stats aggregates stored results for reporting.
type Stats struct {
	Annotations int64
	Results     int64
	ByType      []TypeCount
	ByLabel     []LabelCount
}

// GetStats computes result statistics across all submissions.
func (r *ResultDB) GetStats() (*Stats, error) {
	s := &Stats{}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM annotations`).Scan(&s.Annotations); err != nil {
		return nil, fmt.Errorf("count annotations: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM results`).Scan(&s.Results); err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}

	rows, err := r.db.Query(`SELECT result_type, COUNT(*) FROM results GROUP BY result_type ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("count by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		s.ByType = append(s.ByType, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labelRows, err := r.db.Query(`SELECT labels, COUNT(*) FROM results WHERE labels != '' GROUP BY labels ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, fmt.Errorf("count by label: %w", err)
	}
	defer labelRows.Close()
	counts := map[string]int64{}
	for labelRows.Next() {
		var joined string
		var n int64
		if err := labelRows.Scan(&joined, &n); err != nil {
			return nil, err
		}
		for _, label := range strings.Split(joined, ",") {
			counts[label] += n
		}
	}
	if err := labelRows.Err(); err != nil {
		return nil, err
	}
	for label, n := range counts {
		s.ByLabel = append(s.ByLabel, LabelCount{Label: label, Count: n})
	}
	sort.Slice(s.ByLabel, func(i, j int) bool {
		if s.ByLabel[i].Count != s.ByLabel[j].Count {
			return s.ByLabel[i].Count > s.ByLabel[j].Count
		}
		return s.ByLabel[i].Label < s.ByLabel[j].Label
	})
	return s, nil
}
