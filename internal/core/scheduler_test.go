package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djskncxm/DuckSoup/pkg/httpc"
	"github.com/djskncxm/DuckSoup/pkg/spider"
)

func task(rawURL string) *Task {
	return &Task{Request: httpc.New(rawURL), Spider: spider.Spider{SpiderName: "t"}}
}

func TestScheduler_FIFO(t *testing.T) {
	s := NewScheduler()
	require.True(t, s.EnqueueRequest(task("http://a/1")))
	require.True(t, s.EnqueueRequest(task("http://a/2")))

	assert.Equal(t, "http://a/1", s.NextRequest().Request.URL().String())
	assert.Equal(t, "http://a/2", s.NextRequest().Request.URL().String())
	assert.True(t, s.Empty())
	assert.Equal(t, 2, s.Pending())
}

func TestScheduler_DeduplicatesGet(t *testing.T) {
	s := NewScheduler()
	assert.True(t, s.EnqueueRequest(task("http://a/page#top")))
	assert.False(t, s.EnqueueRequest(task("http://a/page#bottom")))

	post := task("http://a/page")
	post.Request.WithMethod(httpc.MethodPost)
	assert.True(t, s.EnqueueRequest(post))
	assert.True(t, s.EnqueueRequest(post))
}

func TestScheduler_DedupKeyIncludesMethod(t *testing.T) {
	s := NewScheduler()
	assert.True(t, s.EnqueueRequest(task("http://a/item")))

	del := task("http://a/item")
	del.Request.WithMethod(httpc.MethodDelete)
	assert.True(t, s.EnqueueRequest(del))
	assert.False(t, s.EnqueueRequest(del))

	kv, err := httpc.NewKeyVal("q", "1")
	require.NoError(t, err)
	withData := task("http://a/item")
	withData.Request.AddData(kv)
	assert.True(t, s.EnqueueRequest(withData))
	assert.True(t, s.EnqueueRequest(withData))
}

func TestScheduler_NextReturnsNilWhenDone(t *testing.T) {
	s := NewScheduler()
	assert.Nil(t, s.NextRequest())

	s.EnqueueRequest(task("http://a/1"))
	got := s.NextRequest()
	require.NotNil(t, got)

	done := make(chan *Task)
	go func() {
		done <- s.NextRequest()
	}()

	// 还有任务在处理，等待的 worker 不能退出
	select {
	case <-done:
		t.Fatal("worker returned while a task was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	s.Done()
	select {
	case next := <-done:
		assert.Nil(t, next)
	case <-time.After(time.Second):
		t.Fatal("worker not released after last task finished")
	}
}

func TestScheduler_WakesOnEnqueue(t *testing.T) {
	s := NewScheduler()
	s.EnqueueRequest(task("http://a/1"))
	_ = s.NextRequest()

	done := make(chan *Task)
	go func() {
		done <- s.NextRequest()
	}()

	s.EnqueueRequest(task("http://a/2"))
	s.Done()

	select {
	case next := <-done:
		require.NotNil(t, next)
		assert.Equal(t, "http://a/2", next.Request.URL().String())
	case <-time.After(time.Second):
		t.Fatal("worker not woken by enqueue")
	}
}

func TestScheduler_Close(t *testing.T) {
	s := NewScheduler()
	s.EnqueueRequest(task("http://a/1"))
	_ = s.NextRequest()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Nil(t, s.NextRequest())
		}()
	}
	s.Close()
	wg.Wait()

	assert.False(t, s.EnqueueRequest(task("http://a/2")))
}
