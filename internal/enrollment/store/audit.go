// internal/enrollment/store/audit.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"enrollment-core/internal/common/logger"
	"enrollment-core/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// AuditLog writes submission history events to Elasticsearch. Every write
// is best-effort: the orchestrator logs failures and moves on.
type AuditLog struct {
	es     *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewAuditLog(es *elasticsearch.Client, index string, log logger.Logger) *AuditLog {
	return &AuditLog{es: es, index: index, logger: log}
}

// RecordSubmission indexes one submission history event.
func (a *AuditLog) RecordSubmission(ctx context.Context, event models.SubmissionEvent) error {
	if a == nil || a.es == nil {
		return nil
	}

	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	res, err := a.es.Index(
		a.index,
		bytes.NewReader(raw),
		a.es.Index.WithContext(ctx),
		a.es.Index.WithDocumentID(event.ApplicationID),
	)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}
	return nil
}
