package domain

// OrderUpdate assigns a manual order position to the todo with the given id.
type OrderUpdate struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// AppendPosition returns the manual order assigned to a todo created when
// count todos already exist. The counter is flat across all categories and
// never compacted; only relative order within a category is meaningful.
func AppendPosition(count int) int {
	return count
}

// ApplyOrderUpdates sets the order field on every referenced todo and
// returns how many updates matched. Unknown ids are skipped without error,
// so applying the same payload twice is idempotent. Todos are never created
// or removed here.
func ApplyOrderUpdates(todos []Todo, updates []OrderUpdate) int {
	index := make(map[string]int, len(todos))
	for i, t := range todos {
		index[t.ID] = i
	}
	applied := 0
	for _, u := range updates {
		i, ok := index[u.ID]
		if !ok {
			continue
		}
		todos[i].Order = u.Order
		applied++
	}
	return applied
}
