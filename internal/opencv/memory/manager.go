//go:build opencv

// Package memory accounts for every native Mat the OpenCV codec allocates.
package memory

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"glyphprep/internal/logger"
	"glyphprep/internal/opencv/safe"

	"gocv.io/x/gocv"
)

const DefaultMaxMemory int64 = 2 * 1024 * 1024 * 1024

type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
	ctx          context.Context
	cancel       context.CancelFunc
	once         sync.Once
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

func NewManager(log logger.Logger, maxMemory int64) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	manager := &Manager{
		logger:     log,
		maxMemory:  maxMemory,
		activeMats: make(map[uint64]*MatInfo),
		ctx:        ctx,
		cancel:     cancel,
	}

	go manager.monitorMemory()
	return manager
}

func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	size := int64(rows * cols * safe.MatTypeSize(matType))

	m.mu.RLock()
	used := m.usedMemory
	m.mu.RUnlock()

	if used+size > m.maxMemory {
		runtime.GC()
		return nil, fmt.Errorf("memory limit exceeded: would use %d bytes, limit is %d",
			used+size, m.maxMemory)
	}

	return safe.NewMatWithTracker(rows, cols, matType, m, tag)
}

// Adopt registers a Mat produced outside the manager, such as a decoded image.
func (m *Manager) Adopt(mat gocv.Mat, tag string) (*safe.Mat, error) {
	return safe.Adopt(mat, m, tag)
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
}

func (m *Manager) TrackDeallocation(id uint64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if info, exists := m.activeMats[id]; exists {
		delete(m.activeMats, id)
		m.usedMemory -= info.Size
	}
	m.deallocCount++
}

func (m *Manager) ReleaseMat(mat *safe.Mat, tag string) {
	if mat == nil {
		return
	}
	mat.Close()
}

func (m *Manager) GetUsedMemory() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usedMemory
}

func (m *Manager) GetStats() (allocCount, deallocCount int64, usedMemory int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allocCount, m.deallocCount, m.usedMemory
}

func (m *Manager) GetActiveMatCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeMats)
}

func (m *Manager) monitorMemory() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	alloc, dealloc, used := m.GetStats()
	activeCount := m.GetActiveMatCount()

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":   alloc,
		"deallocations": dealloc,
		"used_bytes":    used,
		"active_mats":   activeCount,
	})

	if activeCount > 50 {
		m.logOldestMats(5)
	}

	if used > m.maxMemory*8/10 {
		runtime.GC()
	}
}

func (m *Manager) logOldestMats(count int) {
	m.mu.RLock()
	infos := make([]*MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, info)
	}
	m.mu.RUnlock()

	slices.SortFunc(infos, func(a, b *MatInfo) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	now := time.Now()
	for _, info := range infos[:min(count, len(infos))] {
		m.logger.Warning("MemoryManager", "long-lived Mat detected", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
			"age":  now.Sub(info.Timestamp).String(),
		})
	}
}

func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.cancel()
		m.Cleanup()
	})
}

// Cleanup forgets Mats that were never released. Their native memory is
// reclaimed by the safe.Mat finalizers.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	matCount := len(m.activeMats)
	for id, info := range m.activeMats {
		m.logger.Warning("MemoryManager", "cleaning up unreleased Mat", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
		delete(m.activeMats, id)
	}

	m.logger.Info("MemoryManager", "cleanup completed", map[string]interface{}{
		"mats_cleaned": matCount,
	})

	m.usedMemory = 0
	runtime.GC()
}
