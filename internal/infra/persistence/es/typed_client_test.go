package es

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LouYuanbo1/tirescraper/internal/config"
	"github.com/LouYuanbo1/tirescraper/internal/domain/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 记录收到的请求,只实现用到的几个接口
type fakeES struct {
	mu          sync.Mutex
	indexExists bool
	failIndex   bool
	created     []string
	docs        []map[string]any
	bulkDocs    int
	bulkCalls   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/tires":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/tires":
		f.created = append(f.created, string(body))
		f.indexExists = true
		_, _ = w.Write([]byte(`{"acknowledged":true,"shards_acknowledged":true,"index":"tires"}`))
	case r.URL.Path == "/tires/_doc":
		if f.failIndex {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"type":"es_rejected_execution_exception","reason":"rejected"},"status":500}`))
			return
		}
		var doc map[string]any
		_ = json.Unmarshal(body, &doc)
		f.docs = append(f.docs, doc)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"_index":"tires","_id":"doc-%d","_version":1,"result":"created","_shards":{"total":1,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`, len(f.docs))
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		f.bulkCalls++
		var items []string
		scanner := bufio.NewScanner(strings.NewReader(string(body)))
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), `{"index"`) {
				items = append(items, fmt.Sprintf(`{"index":{"_index":"tires","_id":"b%d","status":201,"result":"created"}}`, len(items)))
			}
		}
		f.bulkDocs += len(items)
		fmt.Fprintf(w, `{"took":1,"errors":false,"items":[%s]}`, strings.Join(items, ","))
	case r.URL.Path == "/tires/_count":
		fmt.Fprintf(w, `{"count":%d,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0}}`, len(f.docs)+f.bulkDocs)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"unexpected","reason":"unexpected request"},"status":404}`))
	}
}

func newTestClient(t *testing.T, fake *fakeES) TypedEsClient[*model.TireRecord] {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	client, err := InitTypedEsClient[*model.TireRecord](config.ElasticsearchConfig{Addresses: []string{srv.URL}}, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func sampleRecord() model.TireRecord {
	return model.TireRecord{
		Brand:        "Michelin",
		Model:        "Pilot Sport 4S",
		Size:         "225/45ZR17",
		Price:        219.99,
		Retailer:     "tirerack",
		Availability: "In Stock",
		ScrapedAt:    time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Attributes:   model.Attributes{LoadRange: "XL"},
	}
}

func TestCreateIndexWithMapping(t *testing.T) {
	fake := &fakeES{}
	client := newTestClient(t, fake)

	require.NoError(t, client.CreateIndexWithMapping(context.Background()))
	require.Len(t, fake.created, 1)
	assert.Contains(t, fake.created[0], `"item_availability"`)
	assert.Contains(t, fake.created[0], `"scrapedAt"`)

	// 已存在时不再创建
	require.NoError(t, client.CreateIndexWithMapping(context.Background()))
	assert.Len(t, fake.created, 1)
}

func TestSinkIndexesEachRecord(t *testing.T) {
	fake := &fakeES{indexExists: true}
	client := newTestClient(t, fake)
	sink := NewSink(client, 0)

	require.NoError(t, sink.Save(context.Background(), sampleRecord()))
	require.NoError(t, sink.Save(context.Background(), sampleRecord()))

	require.Len(t, fake.docs, 2)
	doc := fake.docs[0]
	assert.Equal(t, "Michelin", doc["brand"])
	assert.Equal(t, "In Stock", doc["item_availability"])
	assert.Equal(t, "XL", doc["loadRange"])
	assert.Equal(t, 219.99, doc["price"])

	count, err := client.CountDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSinkBatchesUntilFlush(t *testing.T) {
	fake := &fakeES{indexExists: true}
	client := newTestClient(t, fake)
	sink := NewSink(client, 3)
	ctx := context.Background()

	for range 4 {
		require.NoError(t, sink.Save(ctx, sampleRecord()))
	}
	assert.Equal(t, 1, fake.bulkCalls)
	assert.Equal(t, 3, fake.bulkDocs)

	require.NoError(t, sink.Flush(ctx))
	assert.Equal(t, 2, fake.bulkCalls)
	assert.Equal(t, 4, fake.bulkDocs)

	// 空缓冲刷新不发请求
	require.NoError(t, sink.Flush(ctx))
	assert.Equal(t, 2, fake.bulkCalls)
	assert.Empty(t, fake.docs)
}

func TestSinkReportsIndexFailure(t *testing.T) {
	fake := &fakeES{indexExists: true, failIndex: true}
	sink := NewSink(newTestClient(t, fake), 1)

	err := sink.Save(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index doc to es")
}
