package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/rocjay1/koala-laundry/internal/models"
)

const summaryPartition = "SUMMARY"

// DatabaseService stores processed summaries in Azure Table Storage.
type DatabaseService struct {
	serviceClient *aztables.ServiceClient
	summaryTable  string
}

// NewDatabaseServiceFromEnv creates a DatabaseService from TABLE_SERVICE_URL and SUMMARIES_TABLE.
func NewDatabaseServiceFromEnv(ctx context.Context) (*DatabaseService, error) {
	tableURL := os.Getenv("TABLE_SERVICE_URL")
	if tableURL == "" {
		return nil, fmt.Errorf("TABLE_SERVICE_URL environment variable is required")
	}

	summaryTable := os.Getenv("SUMMARIES_TABLE")
	if summaryTable == "" {
		summaryTable = "summaries"
	}

	var client *aztables.ServiceClient

	auth, err := resolveStorageAuth("table", tableURL)
	if err != nil {
		return nil, err
	}

	if auth.sharedKey() {
		cred, err := aztables.NewSharedKeyCredential(auth.accountName, auth.accountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		client, err = aztables.NewServiceClient(tableURL, auth.token, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	svc := &DatabaseService{serviceClient: client, summaryTable: summaryTable}
	if err := svc.CreateTables(ctx); err != nil {
		return nil, err
	}

	slog.Info("database service initialized", "table_url", tableURL, "summaries_table", summaryTable)
	return svc, nil
}

// CreateTables ensures the summaries table exists.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	if _, err := s.serviceClient.CreateTable(ctx, s.summaryTable, nil); err != nil {
		if hasErrorCode(err, "TableAlreadyExists") {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.summaryTable, err)
	}
	return nil
}

// SummaryRowKey orders rows newest first and stays unique per blob.
func SummaryRowKey(processedAt time.Time, blobName string) string {
	hash := sha256.Sum256([]byte(blobName))
	return fmt.Sprintf("%019d_%s", math.MaxInt64-processedAt.UnixNano(), hex.EncodeToString(hash[:8]))
}

type summaryEntity struct {
	aztables.Entity
	BlobName    string
	Filename    string
	ProcessedAt string
	SkippedRows int
	Rows        int
	TotalPaid   string
	TotalUnpaid string
	TotalLoads  int
	Report      string
}

// SaveSummary upserts a processed upload and returns it with its ID set.
func (s *DatabaseService) SaveSummary(ctx context.Context, record models.SummaryRecord) (models.SummaryRecord, error) {
	if record.ID == "" {
		record.ID = SummaryRowKey(record.ProcessedAt, record.BlobName)
	}

	reportJSON, err := json.Marshal(record.Report)
	if err != nil {
		return record, fmt.Errorf("failed to marshal report: %w", err)
	}

	entity := summaryEntity{
		Entity: aztables.Entity{
			PartitionKey: summaryPartition,
			RowKey:       record.ID,
		},
		BlobName:    record.BlobName,
		Filename:    record.Filename,
		ProcessedAt: record.ProcessedAt.UTC().Format(time.RFC3339),
		SkippedRows: record.SkippedRows,
		Rows:        record.Report.Rows,
		TotalPaid:   record.Report.Summary.TotalPaid.StringFixed(2),
		TotalUnpaid: record.Report.Summary.TotalUnpaid.StringFixed(2),
		TotalLoads:  record.Report.Summary.TotalLoads,
		Report:      string(reportJSON),
	}

	entityJSON, err := json.Marshal(entity)
	if err != nil {
		return record, fmt.Errorf("failed to marshal summary entity: %w", err)
	}

	client := s.serviceClient.NewClient(s.summaryTable)
	if _, err := client.UpsertEntity(ctx, entityJSON, nil); err != nil {
		return record, fmt.Errorf("failed to save summary %s: %w", record.ID, err)
	}
	return record, nil
}

// ListSummaries returns up to limit summaries, newest first.
func (s *DatabaseService) ListSummaries(ctx context.Context, limit int) ([]models.SummaryRecord, error) {
	client := s.serviceClient.NewClient(s.summaryTable)

	filter := fmt.Sprintf("PartitionKey eq '%s'", summaryPartition)
	opts := &aztables.ListEntitiesOptions{Filter: &filter}
	if limit > 0 {
		top := int32(min(limit, 1000))
		opts.Top = &top
	}
	pager := client.NewListEntitiesPager(opts)

	var records []models.SummaryRecord
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list summaries: %w", err)
		}
		for _, raw := range resp.Entities {
			record, err := decodeSummary(raw)
			if err != nil {
				slog.Warn("skipping unreadable summary entity", "error", err)
				continue
			}
			records = append(records, record)
			if limit > 0 && len(records) >= limit {
				return records, nil
			}
		}
	}
	return records, nil
}

func decodeSummary(raw []byte) (models.SummaryRecord, error) {
	var entity summaryEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return models.SummaryRecord{}, fmt.Errorf("failed to unmarshal summary entity: %w", err)
	}

	record := models.SummaryRecord{
		ID:          entity.RowKey,
		BlobName:    entity.BlobName,
		Filename:    entity.Filename,
		SkippedRows: entity.SkippedRows,
	}
	if t, err := time.Parse(time.RFC3339, entity.ProcessedAt); err == nil {
		record.ProcessedAt = t
	}
	if err := json.Unmarshal([]byte(entity.Report), &record.Report); err != nil {
		return record, fmt.Errorf("failed to unmarshal report for %s: %w", entity.RowKey, err)
	}
	return record, nil
}
