// internal/search/jobs.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/common/logger"
	"mfg-orchestrator/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrEmptyQuery = stderrors.New("search query is empty")

// JobsMapping is applied when the jobs index is created.
const JobsMapping = `{
  "mappings": {
    "properties": {
      "jobNumber":     {"type": "keyword"},
      "customerName":  {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "description":   {"type": "text"},
      "status":        {"type": "keyword"},
      "poNumber":      {"type": "keyword"},
      "priority":      {"type": "integer"},
      "financialHold": {"type": "boolean"},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

// JobIndex keeps a searchable copy of jobs in Elasticsearch.
type JobIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewJobIndex(client *elasticsearch.Client, index string, log logger.Logger) *JobIndex {
	return &JobIndex{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "job-index", "index": index}),
	}
}

// IndexJob upserts a job document keyed by job number.
func (x *JobIndex) IndexJob(ctx context.Context, job models.Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: job.JobNumber,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.NewSearchQueryFailedError(fmt.Errorf("index %s: %s", job.JobNumber, res.Status()))
	}
	return nil
}

// SearchJobs runs a fuzzy multi-field match and returns the stored documents.
func (x *JobIndex) SearchJobs(ctx context.Context, query string, limit int) ([]models.Job, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	body, _ := json.Marshal(buildJobQuery(query))
	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
		x.client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source models.Job `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(fmt.Errorf("decode: %w", err))
	}

	jobs := make([]models.Job, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		jobs = append(jobs, h.Source)
	}
	x.logger.Debug("job search", map[string]interface{}{"query": query, "hits": len(jobs)})
	return jobs, nil
}

func buildJobQuery(query string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{
						"term": map[string]interface{}{"jobNumber": map[string]interface{}{"value": query, "boost": 5}},
					},
					map[string]interface{}{
						"term": map[string]interface{}{"poNumber": map[string]interface{}{"value": query, "boost": 3}},
					},
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":     query,
							"fields":    []string{"customerName^2", "description"},
							"fuzziness": "AUTO",
						},
					},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"createdAt": "desc"}},
	}
}
