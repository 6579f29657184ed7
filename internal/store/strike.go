package store

import (
	"database/sql"
	"time"
)

// Strike is a recorded pad hit.
type Strike struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Pad         string    `json:"pad"`
	Intensity   float64   `json:"intensity"`
	Velocity    float64   `json:"velocity"`
	TimestampMs float64   `json:"timestamp_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// StrikeRepository provides access to recorded strikes.
type StrikeRepository struct {
	db *sql.DB
}

// Strikes returns the strike repository for this store.
func (s *Store) Strikes() *StrikeRepository {
	return &StrikeRepository{db: s.db}
}

// Create records a strike and sets its ID.
func (r *StrikeRepository) Create(st *Strike) error {
	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO strikes (session_id, pad, intensity, velocity, timestamp_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		st.SessionID, st.Pad, st.Intensity, st.Velocity, st.TimestampMs, st.CreatedAt,
	)
	if err != nil {
		return err
	}
	st.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's strikes in order. limit <= 0 returns all.
func (r *StrikeRepository) ListBySession(sessionID string, limit int) ([]*Strike, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, session_id, pad, intensity, velocity, timestamp_ms, created_at
		 FROM strikes WHERE session_id = ? ORDER BY timestamp_ms, id LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	strikes := []*Strike{}
	for rows.Next() {
		st := &Strike{}
		if err := rows.Scan(&st.ID, &st.SessionID, &st.Pad, &st.Intensity, &st.Velocity, &st.TimestampMs, &st.CreatedAt); err != nil {
			return nil, err
		}
		strikes = append(strikes, st)
	}
	return strikes, rows.Err()
}

// CountByPad returns the number of strikes per pad in a session.
func (r *StrikeRepository) CountByPad(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT pad, COUNT(*) FROM strikes WHERE session_id = ? GROUP BY pad`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var pad string
		var n int
		if err := rows.Scan(&pad, &n); err != nil {
			return nil, err
		}
		counts[pad] = n
	}
	return counts, rows.Err()
}
