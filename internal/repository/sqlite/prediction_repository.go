package sqlite

import (
	"database/sql"
	"fmt"

	"aerialdetect/internal/model"
)

// PredictionRepository implements repository.PredictionRepository for SQLite.
type PredictionRepository struct {
	db *DB
}

// NewPredictionRepository creates a new SQLite prediction repository.
func NewPredictionRepository(db *DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

const insertObjectQuery = `
	INSERT INTO prediction_objects (prediction_id, class_id, class_name, x1, y1, x2, y2, confidence)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Record stores a prediction and its detections atomically and returns the
// new prediction id.
func (r *PredictionRepository) Record(p *model.Prediction, objects []model.PredictionObject) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO predictions (session_id, model, filename, timestamp, width, height, object_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.SessionID, p.Model, p.Filename, p.Timestamp, p.Width, p.Height, len(objects))
	if err != nil {
		return 0, fmt.Errorf("failed to insert prediction: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read prediction id: %w", err)
	}

	if err := insertObjects(tx, id, objects); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prediction: %w", err)
	}
	return id, nil
}

func insertObjects(tx *sql.Tx, predictionID int64, objects []model.PredictionObject) error {
	stmt, err := tx.Prepare(insertObjectQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, o := range objects {
		if _, err := stmt.Exec(predictionID, o.ClassID, o.ClassName, o.X1, o.Y1, o.X2, o.Y2, o.Confidence); err != nil {
			return fmt.Errorf("failed to insert prediction object: %w", err)
		}
	}
	return nil
}

// GetByID retrieves a prediction by its ID. A missing id yields nil, nil.
func (r *PredictionRepository) GetByID(id int64) (*model.Prediction, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var p model.Prediction
	err := r.db.Conn().QueryRow(`
		SELECT id, session_id, model, filename, timestamp, width, height, object_count
		FROM predictions WHERE id = ?
	`, id).Scan(&p.ID, &p.SessionID, &p.Model, &p.Filename, &p.Timestamp, &p.Width, &p.Height, &p.ObjectCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}
	return &p, nil
}

// filterClause builds the WHERE conditions shared by GetAll and GetTotalCount.
func filterClause(filter *model.PredictionFilter) (string, []interface{}) {
	clause := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return clause, args
	}

	if filter.Model != "" {
		clause += " AND p.model = ?"
		args = append(args, filter.Model)
	}

	if filter.SessionID != "" {
		clause += " AND p.session_id = ?"
		args = append(args, filter.SessionID)
	}

	if filter.ClassName != "" {
		clause += " AND EXISTS (SELECT 1 FROM prediction_objects o WHERE o.prediction_id = p.id AND o.class_name = ?)"
		args = append(args, filter.ClassName)
	}

	return clause, args
}

// GetAll retrieves predictions based on filter criteria, newest first.
func (r *PredictionRepository) GetAll(filter *model.PredictionFilter) ([]model.Prediction, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)
	query := `
		SELECT p.id, p.session_id, p.model, p.filename, p.timestamp, p.width, p.height, p.object_count
		FROM predictions p` + where + " ORDER BY p.timestamp DESC, p.id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []model.Prediction
	for rows.Next() {
		var p model.Prediction
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Model, &p.Filename, &p.Timestamp, &p.Width, &p.Height, &p.ObjectCount); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}

	return predictions, rows.Err()
}

// GetTotalCount returns the number of predictions matching the filter.
func (r *PredictionRepository) GetTotalCount(filter *model.PredictionFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := filterClause(filter)

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM predictions p`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return count, nil
}

// GetObjectsByPredictionID returns the detections of a prediction in detector order.
func (r *PredictionRepository) GetObjectsByPredictionID(predictionID int64) ([]model.PredictionObject, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, prediction_id, class_id, class_name, x1, y1, x2, y2, confidence
		FROM prediction_objects WHERE prediction_id = ? ORDER BY id
	`, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction objects: %w", err)
	}
	defer rows.Close()

	var objects []model.PredictionObject
	for rows.Next() {
		var o model.PredictionObject
		if err := rows.Scan(&o.ID, &o.PredictionID, &o.ClassID, &o.ClassName, &o.X1, &o.Y1, &o.X2, &o.Y2, &o.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan prediction object: %w", err)
		}
		objects = append(objects, o)
	}
	return objects, rows.Err()
}

// GetStats returns statistics about stored predictions.
func (r *PredictionRepository) GetStats() (*model.PredictionStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.PredictionStats{
		PerModel:    make(map[string]int),
		ClassCounts: make(map[string]int),
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&stats.TotalPredictions); err != nil {
		return nil, err
	}

	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM prediction_objects`).Scan(&stats.TotalObjects); err != nil {
		return nil, err
	}

	rows, err := r.db.Conn().Query(`SELECT model, COUNT(*) FROM predictions GROUP BY model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.PerModel[name] = count
	}

	// Most detected classes
	classRows, err := r.db.Conn().Query(`
		SELECT class_name, COUNT(*) as cnt
		FROM prediction_objects
		GROUP BY class_name
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer classRows.Close()

	for classRows.Next() {
		var name string
		var count int
		if err := classRows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.ClassCounts[name] = count
	}

	return stats, nil
}

// DeleteAll removes all predictions and their objects.
func (r *PredictionRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM prediction_objects`); err != nil {
		return fmt.Errorf("failed to delete prediction objects: %w", err)
	}

	if _, err := r.db.Conn().Exec(`DELETE FROM predictions`); err != nil {
		return fmt.Errorf("failed to delete predictions: %w", err)
	}

	return nil
}
