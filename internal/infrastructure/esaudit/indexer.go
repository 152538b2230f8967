package esaudit

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"github.com/oksasatya/freshflower-auth/internal/domain/entity"
)

// NewClient creates an Elasticsearch client with sane defaults and optional basic auth.
func NewClient(addrs []string, username, password string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: addrs,
		Username:  username,
		Password:  password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 5 * time.Second,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		},
	})
}

// Indexer writes auth events as documents into a single index.
type Indexer struct {
	ES      *elasticsearch.Client
	Index   string
	Timeout time.Duration
}

func NewIndexer(es *elasticsearch.Client, index string) *Indexer {
	return &Indexer{ES: es, Index: index, Timeout: time.Second}
}

type document struct {
	Action    string `json:"action"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email"`
	Reason    string `json:"reason,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	At        string `json:"@timestamp"`
}

func toDocument(ev entity.AuthEvent) document {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	return document{
		Action:    ev.Action,
		UserID:    ev.UserID,
		Email:     ev.Email,
		Reason:    ev.Reason,
		IP:        ev.IP,
		UserAgent: ev.UserAgent,
		RequestID: ev.RequestID,
		At:        at.UTC().Format(time.RFC3339Nano),
	}
}

// Record indexes ev. The document ID is random so retries never overwrite.
func (x *Indexer) Record(ctx context.Context, ev entity.AuthEvent) error {
	if x == nil || x.ES == nil || x.Index == "" {
		return nil
	}
	b, err := json.Marshal(toDocument(ev))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      x.Index,
		DocumentID: uuid.NewString(),
		Body:       strings.NewReader(string(b)),
		Refresh:    "false",
	}
	c, cancel := context.WithTimeout(ctx, x.Timeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return fmt.Errorf("index auth event: %w", err)
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index auth event: %s", res.Status())
	}
	return nil
}
