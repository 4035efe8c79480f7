package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mmeshcher/foodshare/internal/model"
)

type entry struct {
	row       json.RawMessage
	updatedAt time.Time
	deleted   bool
}

// ReadModel хранит локальную копию строк одной таблицы, с ключом по первичному ключу id.
// При конфликте побеждает событие с более поздней отметкой времени.
type ReadModel struct {
	mu    sync.RWMutex
	table string
	rows  map[string]entry
}

// NewReadModel создаёт пустую копию таблицы.
func NewReadModel(table string) *ReadModel {
	return &ReadModel{
		table: table,
		rows:  make(map[string]entry),
	}
}

// Load заполняет копию начальным снимком.
func (m *ReadModel) Load(rows []json.RawMessage, at time.Time) error {
	for _, row := range rows {
		id, err := rowID(row)
		if err != nil {
			return err
		}
		m.put(id, entry{row: row, updatedAt: at})
	}
	return nil
}

// Apply применяет событие. Возвращает false, если событие относится к другой таблице
// или устарело.
func (m *ReadModel) Apply(ev model.ChangeEvent) (bool, error) {
	if ev.Table != m.table {
		return false, nil
	}

	row := ev.New
	if ev.EventType == model.EventDelete {
		row = ev.Old
	}

	id, err := rowID(row)
	if err != nil {
		return false, err
	}

	return m.put(id, entry{
		row:       ev.New,
		updatedAt: ev.CommitTimestamp,
		deleted:   ev.EventType == model.EventDelete,
	}), nil
}

func (m *ReadModel) put(id string, e entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.rows[id]; ok && e.updatedAt.Before(cur.updatedAt) {
		return false
	}
	m.rows[id] = e
	return true
}

// Len возвращает число живых строк.
func (m *ReadModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.rows {
		if !e.deleted {
			n++
		}
	}
	return n
}

// Listings декодирует копию таблицы объявлений.
func (m *ReadModel) Listings() ([]model.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Listing, 0, len(m.rows))
	for id, e := range m.rows {
		if e.deleted {
			continue
		}
		var l model.Listing
		if err := json.Unmarshal(e.row, &l); err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", id, err)
		}
		st, err := model.ParseListingStatus(string(l.Status))
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", id, err)
		}
		l.Status = st
		res = append(res, l)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// Claims декодирует копию таблицы броней.
func (m *ReadModel) Claims() ([]model.Claim, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]model.Claim, 0, len(m.rows))
	for id, e := range m.rows {
		if e.deleted {
			continue
		}
		var c model.Claim
		if err := json.Unmarshal(e.row, &c); err != nil {
			return nil, fmt.Errorf("decode claim %s: %w", id, err)
		}
		st, err := model.ParseClaimStatus(string(c.Status))
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", id, err)
		}
		c.Status = st
		res = append(res, c)
	}

	sort.Slice(res, func(i, j int) bool { return res[i].ClaimedAt.After(res[j].ClaimedAt) })
	return res, nil
}

func rowID(row json.RawMessage) (string, error) {
	var key struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(row, &key); err != nil {
		return "", fmt.Errorf("decode row key: %w", err)
	}
	if key.ID == "" {
		return "", fmt.Errorf("row without id")
	}
	return key.ID, nil
}
