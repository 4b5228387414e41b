package result

import "time"

// Summary is a serializable snapshot of a Node and its subtree, suitable for
// embedding in phase reports.
type Summary struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	SourceType string         `json:"sourceType"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	EndedAt    time.Time      `json:"endedAt"`
	DurationMS int64          `json:"durationMs"`
	Detail     map[string]any `json:"detail,omitempty"`
	Children   []Summary      `json:"children,omitempty"`
}

// Summarize captures the node and its subtree as a Summary.
// The snapshot is taken child by child; for a terminal tree (the normal case,
// after a pipeline has finished) it is exact.
func Summarize(n *Node) Summary {
	n.mu.RLock()
	s := Summary{
		ID:         n.id.String(),
		Name:       n.name,
		SourceType: string(n.sourceType),
		Status:     n.status.String(),
		StartedAt:  n.start,
		EndedAt:    n.end,
	}
	if n.err != nil {
		s.Error = n.err.Error()
	}
	if len(n.detail) > 0 {
		s.Detail = make(map[string]any, len(n.detail))
		for k, v := range n.detail {
			s.Detail[k] = v
		}
	}
	children := make([]*Node, len(n.children))
	copy(children, n.children)
	n.mu.RUnlock()

	if !s.EndedAt.IsZero() {
		s.DurationMS = s.EndedAt.Sub(s.StartedAt).Milliseconds()
	}
	for _, child := range children {
		s.Children = append(s.Children, Summarize(child))
	}
	return s
}

// CountByStatus walks the subtree rooted at n and returns how many nodes
// carry each status, including n itself.
func CountByStatus(n *Node) map[Status]int {
	counts := make(map[Status]int)
	var walk func(*Node)
	walk = func(node *Node) {
		counts[node.Status()]++
		for _, child := range node.Children() {
			walk(child)
		}
	}
	walk(n)
	return counts
}
