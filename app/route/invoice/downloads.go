package invoice

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	downloadTTL = 5 * time.Minute
	// maxDownloads caps how many generated workbooks wait in memory for the
	// browser to fetch them.
	maxDownloads = 32
)

// download is a generated workbook waiting to be fetched by the upload page.
type download struct {
	fileName string
	data     []byte
	projects int
	hours    float64
	expires  time.Time
}

// downloadStore hands out each workbook once, under an unguessable id.
type downloadStore struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]download
}

func newDownloadStore(ttl time.Duration) *downloadStore {
	return &downloadStore{ttl: ttl, now: time.Now, items: make(map[string]download)}
}

func (s *downloadStore) put(d download) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.evict(now)
	for len(s.items) >= maxDownloads {
		s.dropOldest()
	}

	id := uuid.NewString()
	d.expires = now.Add(s.ttl)
	s.items[id] = d
	return id
}

// take removes and returns the workbook stored under id.
func (s *downloadStore) take(id string) (download, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.items[id]
	if !ok {
		return download{}, false
	}
	delete(s.items, id)
	if !s.now().Before(d.expires) {
		return download{}, false
	}
	return d, true
}

func (s *downloadStore) evict(now time.Time) {
	for id, d := range s.items {
		if !now.Before(d.expires) {
			delete(s.items, id)
		}
	}
}

func (s *downloadStore) dropOldest() {
	var oldest string
	var first time.Time
	for id, d := range s.items {
		if oldest == "" || d.expires.Before(first) {
			oldest, first = id, d.expires
		}
	}
	delete(s.items, oldest)
}
