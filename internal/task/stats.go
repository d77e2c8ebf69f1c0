package task

import "time"

// Stats 聚合任务状态与优先级的数量，供 shell 展示摘要。
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
	Overdue   int `json:"overdue"`
}

// ComputeStats 统计给定记录；无法解析的记录只计入 Total。
func ComputeStats(records []Record, now time.Time) Stats {
	stats := Stats{}
	for _, rec := range records {
		stats.Total++
		switch Status(rec[FieldStatus]) {
		case StatusPending:
			stats.Pending++
		case StatusCompleted:
			stats.Completed++
		}
		switch Priority(rec[FieldPriority]) {
		case PriorityHigh:
			stats.High++
		case PriorityMedium:
			stats.Medium++
		case PriorityLow:
			stats.Low++
		}
		t := &Task{Status: Status(rec[FieldStatus]), DueDate: rec[FieldDueDate]}
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	return stats
}
