package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Simple Prometheus-style metrics for the coordinator.
// This is intentionally minimal and in-memory only.

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsClaimedTotal   int64
	jobsCompletedTotal int64
	jobsErroredTotal   int64
	enqueueTotal       = make(map[string]int64)
	indexUpsertsTotal  = make(map[idxKey]int64)
	searchesTotal      = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type idxKey struct {
	Index   string
	Success string
}

// RecordRequest increments request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJobClaimed counts a successful lease grant.
func RecordJobClaimed() {
	mu.Lock()
	defer mu.Unlock()
	jobsClaimedTotal++
}

// RecordJobCompleted counts a job flipped to complete by ingestion.
func RecordJobCompleted() {
	mu.Lock()
	defer mu.Unlock()
	jobsCompletedTotal++
}

// RecordJobErrored counts a worker-reported crawl error.
func RecordJobErrored() {
	mu.Lock()
	defer mu.Unlock()
	jobsErroredTotal++
}

// RecordEnqueue counts a frontier insert attempt by outcome
// ("inserted" or "duplicate").
func RecordEnqueue(outcome string) {
	mu.Lock()
	defer mu.Unlock()
	enqueueTotal[outcome]++
}

// RecordIndexUpsert counts a search-index upsert per index name.
func RecordIndexUpsert(index string, success bool) {
	mu.Lock()
	defer mu.Unlock()

	s := "false"
	if success {
		s = "true"
	}
	indexUpsertsTotal[idxKey{Index: index, Success: s}]++
}

// RecordSearch counts a search request by kind ("web", "image",
// "complete").
func RecordSearch(kind string) {
	mu.Lock()
	defer mu.Unlock()
	searchesTotal[kind]++
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP seeker_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE seeker_http_requests_total counter\n")

	// Sort keys for stable output
	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})

	for _, k := range reqKeys {
		v := requestsTotal[k]
		fmt.Fprintf(&b, "seeker_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, v)
	}

	b.WriteString("# HELP seeker_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE seeker_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP seeker_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE seeker_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})

	for _, k := range latKeys {
		sum := latencyMsSum[k]
		cnt := latencyMsCount[k]
		fmt.Fprintf(&b, "seeker_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, sum)
		fmt.Fprintf(&b, "seeker_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, cnt)
	}

	// Frontier metrics
	b.WriteString("# HELP seeker_jobs_claimed_total Total leases granted to workers\n")
	b.WriteString("# TYPE seeker_jobs_claimed_total counter\n")
	fmt.Fprintf(&b, "seeker_jobs_claimed_total %d\n", jobsClaimedTotal)

	b.WriteString("# HELP seeker_jobs_completed_total Total jobs completed by ingestion\n")
	b.WriteString("# TYPE seeker_jobs_completed_total counter\n")
	fmt.Fprintf(&b, "seeker_jobs_completed_total %d\n", jobsCompletedTotal)

	b.WriteString("# HELP seeker_jobs_errored_total Total worker-reported crawl errors\n")
	b.WriteString("# TYPE seeker_jobs_errored_total counter\n")
	fmt.Fprintf(&b, "seeker_jobs_errored_total %d\n", jobsErroredTotal)

	b.WriteString("# HELP seeker_enqueue_total Frontier insert attempts by outcome\n")
	b.WriteString("# TYPE seeker_enqueue_total counter\n")

	var outcomes []string
	for o := range enqueueTotal {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(&b, "seeker_enqueue_total{outcome=\"%s\"} %d\n", o, enqueueTotal[o])
	}

	// Search index metrics
	b.WriteString("# HELP seeker_index_upserts_total Search index upserts by index and success\n")
	b.WriteString("# TYPE seeker_index_upserts_total counter\n")

	var idxKeys []idxKey
	for k := range indexUpsertsTotal {
		idxKeys = append(idxKeys, k)
	}
	sort.Slice(idxKeys, func(i, j int) bool {
		if idxKeys[i].Index != idxKeys[j].Index {
			return idxKeys[i].Index < idxKeys[j].Index
		}
		return idxKeys[i].Success < idxKeys[j].Success
	})
	for _, k := range idxKeys {
		fmt.Fprintf(&b, "seeker_index_upserts_total{index=\"%s\",success=\"%s\"} %d\n",
			k.Index, k.Success, indexUpsertsTotal[k])
	}

	b.WriteString("# HELP seeker_searches_total Search requests by kind\n")
	b.WriteString("# TYPE seeker_searches_total counter\n")

	var kinds []string
	for k := range searchesTotal {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(&b, "seeker_searches_total{kind=\"%s\"} %d\n", k, searchesTotal[k])
	}

	return b.String()
}
