package core

import (
	"sync"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/emirpasic/gods/sets/hashset"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/spider"
)

// Task 待抓取的请求以及产生它的爬虫
type Task struct {
	Request *httpc.Request
	Spider  spider.SpiderIns
	Depth   int
}

// Scheduler 先进先出的任务队列
//
// pending 统计排队中和处理中的任务，归零且队列为空时所有 worker 退出。
type Scheduler struct {
	RequestQueue *linkedlistqueue.Queue
	seen         *hashset.Set
	mu           sync.Mutex
	cond         *sync.Cond
	pending      int
	closed       bool
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		RequestQueue: linkedlistqueue.New(),
		seen:         hashset.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// EnqueueRequest 入队，重复的 GET 地址和关闭后的入队返回 false
func (scheduler *Scheduler) EnqueueRequest(task *Task) bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	if scheduler.closed {
		return false
	}
	if key, ok := fingerprint(task.Request); ok {
		if scheduler.seen.Contains(key) {
			return false
		}
		scheduler.seen.Add(key)
	}
	scheduler.RequestQueue.Enqueue(task)
	scheduler.pending++
	scheduler.cond.Signal()
	return true
}

// NextRequest 阻塞直到有任务可取；所有任务完成或已关闭时返回 nil
func (scheduler *Scheduler) NextRequest() *Task {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()

	for scheduler.RequestQueue.Empty() && scheduler.pending > 0 && !scheduler.closed {
		scheduler.cond.Wait()
	}
	if scheduler.closed {
		return nil
	}
	value, ok := scheduler.RequestQueue.Dequeue()
	if !ok {
		return nil
	}
	return value.(*Task)
}

// Done 标记一个任务处理完毕，子任务必须在此之前入队
func (scheduler *Scheduler) Done() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.pending--
	if scheduler.pending <= 0 {
		scheduler.cond.Broadcast()
	}
}

// Close 停止调度，唤醒所有等待的 worker
func (scheduler *Scheduler) Close() {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.closed = true
	scheduler.cond.Broadcast()
}

func (scheduler *Scheduler) Empty() bool {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.RequestQueue.Empty()
}

func (scheduler *Scheduler) Pending() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.pending
}

// 只对不带请求体且没有数据的请求去重，方法也算在指纹里
func fingerprint(req *httpc.Request) (string, bool) {
	if req.Method().HasBody() || len(req.Data()) > 0 || req.URL() == nil {
		return "", false
	}
	u := *req.URL()
	u.Fragment = ""
	u.RawFragment = ""
	return req.Method().String() + " " + u.String(), true
}
