package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxRequests = "leadadmin_requests"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the requests index.
// An unreachable instance is tolerated; the health loop picks it up later.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxRequests,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxRequests, err)
	}

	index := m.client.Index(idxRequests)
	filterable := []interface{}{"specialization", "status"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxRequests, err)
	}
	searchable := []string{"name", "city", "description", "phone"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxRequests, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the requests index.
func (m *Meili) Search(q Query) ([]RequestRecord, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	}
	if q.Specialization != "" {
		sr.Filter = []string{fmt.Sprintf("specialization = %q", q.Specialization)}
	}

	resp, err := m.client.Index(idxRequests).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]RequestRecord, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToRecord(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToRecord(hit meili.Hit) RequestRecord {
	return RequestRecord{
		ID:             decodeInt64(hit, "id"),
		Name:           decodeString(hit, "name"),
		City:           decodeString(hit, "city"),
		Description:    decodeString(hit, "description"),
		Phone:          decodeString(hit, "phone"),
		Specialization: decodeString(hit, "specialization"),
		Status:         decodeString(hit, "status"),
	}
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeInt64(hit meili.Hit, key string) int64 {
	raw, ok := hit[key]
	if !ok {
		return 0
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	// Meilisearch may round-trip numbers as strings depending on the payload.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseInt(s, 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

// IndexRequest adds or updates a request in the search index.
func (m *Meili) IndexRequest(record RequestRecord) error {
	_, err := m.client.Index(idxRequests).AddDocuments([]RequestRecord{record}, nil)
	return err
}

// IndexRequests bulk-indexes requests.
func (m *Meili) IndexRequests(records []RequestRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxRequests).AddDocuments(records, nil)
	return err
}

// DeleteRequest removes a request from the search index.
func (m *Meili) DeleteRequest(id int64) error {
	_, err := m.client.Index(idxRequests).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}
