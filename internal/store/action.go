package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrPadBound is returned when a pad already has an action.
var ErrPadBound = errors.New("pad already has an action")

// Action binds a pad to a plugin action.
type Action struct {
	ID         string          `json:"id"`
	Pad        string          `json:"pad"`
	PluginName string          `json:"plugin_name"`
	ActionName string          `json:"action_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActionRepository provides CRUD operations for pad actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const actionColumns = `id, pad, plugin_name, action_name, config, enabled, created_at`

// Create inserts a new action. Each pad holds at most one action.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO pad_actions (`+actionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Pad, a.PluginName, a.ActionName, string(configOrEmpty(a.Config)), a.Enabled, a.CreatedAt,
	)
	return uniqueErr(err)
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM pad_actions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// GetByPad retrieves the action bound to a pad.
// Returns nil, nil if no action is bound to the pad.
func (r *ActionRepository) GetByPad(pad string) (*Action, error) {
	a, err := scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM pad_actions WHERE pad = ?`, pad))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Silent skip - no action bound
	}
	return a, err
}

// List retrieves all actions ordered by pad.
func (r *ActionRepository) List() ([]*Action, error) {
	rows, err := r.db.Query(`SELECT ` + actionColumns + ` FROM pad_actions ORDER BY pad`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := []*Action{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	return actions, rows.Err()
}

// Update updates an existing action in the database.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE pad_actions SET pad = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.Pad, a.PluginName, a.ActionName, string(configOrEmpty(a.Config)), a.Enabled, a.ID,
	)
	if err != nil {
		return uniqueErr(err)
	}
	return expectRow(result)
}

// Delete removes an action from the database by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM pad_actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectRow(result)
}

func scanAction(row scanner) (*Action, error) {
	a := &Action{}
	var config string
	var enabled int
	if err := row.Scan(&a.ID, &a.Pad, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

func configOrEmpty(c json.RawMessage) json.RawMessage {
	if len(c) == 0 {
		return json.RawMessage("{}")
	}
	return c
}

// uniqueErr maps a pad uniqueness violation to ErrPadBound.
func uniqueErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: pad_actions.pad") {
		return ErrPadBound
	}
	return err
}
