package realtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmeshcher/foodshare/internal/model"
)

// Subscription задаёт таблицу и необязательный фильтр вида column=eq.value.
type Subscription struct {
	Table  string
	Column string
	Value  string
}

// ParseSubscription разбирает параметры подписки.
func ParseSubscription(table, filter string) (Subscription, error) {
	switch table {
	case model.TableListings, model.TableClaims, model.TableNotifications:
	default:
		return Subscription{}, fmt.Errorf("unknown table %q", table)
	}

	sub := Subscription{Table: table}
	if filter == "" {
		return sub, nil
	}

	column, value, ok := strings.Cut(filter, "=eq.")
	if !ok || column == "" || value == "" {
		return Subscription{}, fmt.Errorf("unsupported filter %q", filter)
	}
	sub.Column = column
	sub.Value = value

	return sub, nil
}

// String возвращает подписку в виде table:column=eq.value.
func (s Subscription) String() string {
	if s.Column == "" {
		return s.Table
	}
	return s.Table + ":" + s.Column + "=eq." + s.Value
}

// Matches сообщает, относится ли событие к подписке.
func (s Subscription) Matches(ev model.ChangeEvent) bool {
	if s.Table != ev.Table {
		return false
	}
	if s.Column == "" {
		return true
	}

	row := ev.New
	if len(row) == 0 {
		row = ev.Old
	}

	var fields map[string]any
	if err := json.Unmarshal(row, &fields); err != nil {
		return false
	}
	v, ok := fields[s.Column]
	if !ok || v == nil {
		return false
	}
	return fmt.Sprint(v) == s.Value
}
