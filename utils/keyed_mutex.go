package utils

import (
	"sync"
	"time"
)

// keyedEntry 单个键的锁信息
type keyedEntry struct {
	mu       sync.Mutex // 该键的互斥锁
	refs     int        // 正在等待或持有该锁的调用数
	lastUsed time.Time  // 最后一次释放时间
}

// KeyedMutex 按键串行化的互斥锁
// 同一个键（例如 "sid:year"）上的读取-求和-标记-回写流程在本进程内依次执行，
// 不同键之间互不影响。只在单进程内有效，多实例部署仍然存在竞争。
type KeyedMutex struct {
	entries       map[string]*keyedEntry // 各个键的锁
	mutex         sync.Mutex             // 保护entries
	idleTTL       time.Duration          // 空闲多久后清理
	cleanInterval time.Duration          // 清理间隔
	stop          chan struct{}          // 关闭后清理协程退出
	stopOnce      sync.Once              // 保证stop只关闭一次
	done          chan struct{}          // 清理协程已退出
}

// NewKeyedMutex 创建按键互斥锁
// 参数:
//   - idleTTL: 键空闲超过该时长后被清理
//   - cleanInterval: 清理间隔，为0时不启动清理协程
func NewKeyedMutex(idleTTL, cleanInterval time.Duration) *KeyedMutex {
	km := &KeyedMutex{
		entries:       make(map[string]*keyedEntry),
		idleTTL:       idleTTL,
		cleanInterval: cleanInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}

	if cleanInterval > 0 {
		go km.cleanupRoutine()
	} else {
		close(km.done)
	}

	return km
}

// cleanupRoutine 定期清理空闲的键
func (k *KeyedMutex) cleanupRoutine() {
	defer close(k.done)

	ticker := time.NewTicker(k.cleanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.cleanup()
		case <-k.stop:
			return
		}
	}
}

// Close 停止清理协程并等待其退出，可以重复调用
// 已经持有的锁不受影响
func (k *KeyedMutex) Close() {
	k.stopOnce.Do(func() { close(k.stop) })
	<-k.done
}

// cleanup 删除没有人持有且空闲超时的键
func (k *KeyedMutex) cleanup() {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	now := time.Now()
	for key, entry := range k.entries {
		if entry.refs == 0 && now.Sub(entry.lastUsed) > k.idleTTL {
			delete(k.entries, key)
		}
	}
}

// Lock 获取键对应的锁，返回用于释放的函数
func (k *KeyedMutex) Lock(key string) func() {
	k.mutex.Lock()
	entry, exists := k.entries[key]
	if !exists {
		entry = &keyedEntry{}
		k.entries[key] = entry
	}
	entry.refs++
	k.mutex.Unlock()

	entry.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			entry.mu.Unlock()

			k.mutex.Lock()
			entry.refs--
			entry.lastUsed = time.Now()
			k.mutex.Unlock()
		})
	}
}

// Len 返回当前跟踪的键数量
func (k *KeyedMutex) Len() int {
	k.mutex.Lock()
	defer k.mutex.Unlock()

	return len(k.entries)
}
