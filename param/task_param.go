package param

import (
	"fmt"
	"time"
)

type TaskStatus string

// 任务状态: pending -> running -> succeeded / failed
const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
)

// ScrapeTask 一个组合对应一个任务,终态在记录日志后丢弃
type ScrapeTask struct {
	Retailer    string
	Zipcode     string
	Combination Combination
	// Page 当前页游标,从1开始
	Page      int
	Attempt   int
	Status    TaskStatus
	StartedAt time.Time
	Err       error
}

func NewScrapeTask(retailer, zipcode string, c Combination) *ScrapeTask {
	return &ScrapeTask{
		Retailer:    retailer,
		Zipcode:     zipcode,
		Combination: c,
		Status:      TaskPending,
	}
}

func (t *ScrapeTask) String() string {
	return fmt.Sprintf("%s/%s/%s", t.Retailer, t.Zipcode, t.Combination)
}

// Done 任务是否已经进入终态
func (t *ScrapeTask) Done() bool {
	return t.Status == TaskSucceeded || t.Status == TaskFailed
}
