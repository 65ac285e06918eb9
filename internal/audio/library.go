package audio

import (
	"container/list"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCapacity is the number of clips kept when no size is configured
const DefaultCapacity = 64

// ErrClipNotFound is returned for unknown or evicted clip ids
var ErrClipNotFound = errors.New("audio clip not found")

// Clip is one synthesized audio file held in memory
type Clip struct {
	ID          string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// Library keeps recently synthesized clips so the browser can fetch them by URL.
// When full, the oldest clip is evicted.
type Library struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	clips    map[string]*list.Element
	logger   *zap.Logger
}

// NewLibrary creates a library holding at most capacity clips
func NewLibrary(capacity int, logger *zap.Logger) *Library {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Library{
		capacity: capacity,
		order:    list.New(),
		clips:    make(map[string]*list.Element),
		logger:   logger,
	}
}

// Put stores data and returns the new clip id
func (l *Library) Put(contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("failed to store clip: empty audio")
	}

	clip := &Clip{
		ID:          uuid.NewString(),
		ContentType: contentType,
		Data:        data,
		CreatedAt:   time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.clips[clip.ID] = l.order.PushBack(clip)
	for l.order.Len() > l.capacity {
		oldest := l.order.Front()
		evicted := l.order.Remove(oldest).(*Clip)
		delete(l.clips, evicted.ID)
		l.logger.Debug("Evicted audio clip", zap.String("clipID", evicted.ID))
	}

	return clip.ID, nil
}

// Get returns the clip stored under id
func (l *Library) Get(id string) (*Clip, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.clips[id]
	if !ok {
		return nil, ErrClipNotFound
	}
	return el.Value.(*Clip), nil
}

// Len returns the number of clips held
func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
