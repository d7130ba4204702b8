package utils

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex(time.Minute, 0)

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("2:2025")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := NewKeyedMutex(time.Minute, 0)

	unlockA := km.Lock("2:2025")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("3:2025")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("不同的键不应该互相阻塞")
	}
}

func TestKeyedMutex_UnlockIsIdempotent(t *testing.T) {
	km := NewKeyedMutex(time.Minute, 0)

	unlock := km.Lock("k")
	unlock()
	unlock()

	// 能再次获取说明锁已释放且没有被重复解锁
	again := km.Lock("k")
	again()
}

func TestKeyedMutex_Cleanup(t *testing.T) {
	km := NewKeyedMutex(0, 0)

	held := km.Lock("held")
	released := km.Lock("released")
	released()
	time.Sleep(time.Millisecond)

	km.cleanup()
	assert.Equal(t, 1, km.Len())

	held()
	time.Sleep(time.Millisecond)
	km.cleanup()
	assert.Equal(t, 0, km.Len())
}

func TestKeyedMutex_Close(t *testing.T) {
	km := NewKeyedMutex(0, time.Millisecond)

	km.Lock("2:2025")()
	assert.Eventually(t, func() bool { return km.Len() == 0 }, time.Second, time.Millisecond)

	closed := make(chan struct{})
	go func() {
		km.Close()
		km.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	// 清理协程已退出，空闲的键不会再被删除
	km.Lock("3:2025")()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, km.Len())

	// 未启动清理协程时Close直接返回
	NewKeyedMutex(time.Minute, 0).Close()
}
