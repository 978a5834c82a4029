// Package docai wraps the Google Document AI processor API behind a small
// interface, plus an on-disk cache of raw OCR results keyed by content hash.
package docai

import (
	"context"
	"errors"
	"fmt"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// Processor is the OCR boundary consumed by the document loader. The loader
// treats it as an opaque, possibly-absent dependency: any error here is
// converted to a boolean failure at the loader boundary, never propagated.
type Processor interface {
	// ProcessDocument runs OCR over the whole document and returns the raw
	// Document AI result.
	ProcessDocument(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error)
	// ProcessorID identifies the processor version, used as part of the
	// on-disk cache key.
	ProcessorID() string
}

// Config holds the Document AI processor coordinates.
type Config struct {
	ProjectID       string
	Location        string
	ProcessorID     string
	CredentialsFile string
	// RequestsPerMinute caps calls to the external service. Zero disables
	// the limiter.
	RequestsPerMinute int
}

var (
	ErrNotConfigured = errors.New("docai: processor not configured")
	ErrEmptyResult   = errors.New("docai: service returned no document")
)

// Client is the production Processor backed by the Document AI API.
type Client struct {
	client      *documentai.DocumentProcessorClient
	name        string
	processorID string
	limiter     *rate.Limiter
}

// NewClient validates the configuration and dials the regional Document AI
// endpoint. A missing project, location, or processor ID is a configuration
// error and fails here rather than on first use.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Location == "" || cfg.ProcessorID == "" {
		return nil, ErrNotConfigured
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("docai: dial processor client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		client:      client,
		name:        fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		processorID: cfg.ProcessorID,
		limiter:     limiter,
	}, nil
}

// ProcessDocument sends the whole document to the processor in a single call.
// There are no retries: a failure is terminal for this parse attempt and the
// disk cache is the only mechanism avoiding redundant calls across attempts.
func (c *Client) ProcessDocument(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("docai: rate limiter: %w", err)
	}

	req := &documentaipb.ProcessRequest{
		Name: c.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
	}

	resp, err := c.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("docai: process document: %w", err)
	}
	doc := resp.GetDocument()
	if doc == nil {
		return nil, ErrEmptyResult
	}
	return doc, nil
}

// ProcessorID returns the configured processor identifier.
func (c *Client) ProcessorID() string { return c.processorID }

// Close releases the underlying gRPC connection.
func (c *Client) Close() error { return c.client.Close() }
