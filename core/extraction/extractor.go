package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/retry"
	"github.com/siherrmann/tmsrag/core/store"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
	"github.com/tidwall/gjson"
)

// ContextQuery is the generic query used to collect the shipment relevant chunks.
const ContextQuery = "shipment carrier consignee shipper pickup delivery rate"

const extractionTemplate = `You are an expert at extracting structured data from logistics documents.

Your task is to extract the following shipment information from the provided document text.
Return ONLY a JSON object with these exact fields. Use null for any field not found in the document.

Required fields:
- shipment_id: Shipment or order ID
- shipper: Name or company shipping the goods
- consignee: Name or company receiving the goods
- pickup_datetime: Scheduled pickup date and time
- delivery_datetime: Scheduled or expected delivery date and time
- equipment_type: Type of equipment (e.g., "53' Dry Van", "Flatbed", "Reefer")
- mode: Transportation mode (e.g., "LTL", "FTL", "Parcel")
- rate: Transportation rate or cost
- currency: Currency for the rate (e.g., "USD", "CAD")
- weight: Total weight of shipment
- carrier_name: Name of the carrier company

IMPORTANT RULES:
1. Extract information EXACTLY as it appears in the document
2. Return valid JSON format only, no additional text
3. Use null for missing fields, not empty strings
4. Preserve original formatting for dates, numbers, and names
5. Do not make assumptions or infer missing data

Document Text:
%s

JSON Output:`

// Extractor pulls a shipment record out of an indexed document.
type Extractor struct {
	querier  store.Querier
	generate llm.GenerateFunc
	topK     int
	policy   *retry.Policy
	logger   *slog.Logger
}

// NewExtractor creates a new structured extractor. topK bounds the chunks used as context.
func NewExtractor(querier store.Querier, generate llm.GenerateFunc, topK int, policy *retry.Policy, logger *slog.Logger) (*Extractor, error) {
	if querier == nil {
		return nil, helper.NewError("extractor validation", fmt.Errorf("querier must not be nil"))
	}
	if generate == nil {
		return nil, helper.NewError("extractor validation", fmt.Errorf("generator must not be nil"))
	}
	if topK <= 0 {
		return nil, helper.NewError("extractor validation", fmt.Errorf("top k must be positive, got %d", topK))
	}
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		querier:  querier,
		generate: generate,
		topK:     topK,
		policy:   policy,
		logger:   logger,
	}, nil
}

// ExtractShipmentData is best effort: any failure yields a record with every field absent.
func (e *Extractor) ExtractShipmentData(ctx context.Context, collection *model.Collection, documentID string) model.ShipmentRecord {
	return e.Extract(ctx, collection, documentID).Record
}

// Extract returns the shipment record together with a status telling an empty
// document apart from a failed extraction. It never returns an error.
func (e *Extractor) Extract(ctx context.Context, collection *model.Collection, documentID string) model.ExtractionResult {
	failed := model.ExtractionResult{Status: model.ExtractionFailed}
	if collection == nil {
		e.logger.Error("Error extracting shipment data", slog.String("document_id", documentID), slog.String("error", "collection is nil"))
		return failed
	}

	retrieved, err := e.querier.Query(ctx, collection, ContextQuery, e.topK)
	if err != nil {
		e.logger.Error("Error getting document context", slog.String("document_id", documentID), slog.String("error", err.Error()))
		return failed
	}
	if len(retrieved) == 0 {
		e.logger.Info("No document context for extraction", slog.String("document_id", documentID))
		return model.ExtractionResult{Status: model.ExtractionEmpty}
	}

	contents := make([]string, 0, len(retrieved))
	for _, r := range retrieved {
		if r.Chunk != nil {
			contents = append(contents, r.Chunk.Content)
		}
	}

	e.logger.Info("Extracting shipment data", slog.String("document_id", documentID), slog.Int("chunks", len(contents)))

	prompt := fmt.Sprintf(extractionTemplate, strings.Join(contents, "\n\n"))
	raw, err := retry.Do(ctx, e.policy, "extract shipment data", func() (string, error) {
		return e.generate(ctx, prompt)
	})
	if err != nil {
		e.logger.Error("Error extracting shipment data", slog.String("document_id", documentID), slog.String("error", err.Error()))
		return failed
	}

	record, err := ParseShipmentRecord(raw)
	if err != nil {
		e.logger.Error("Failed to parse JSON", slog.String("document_id", documentID), slog.String("raw", raw))
		return failed
	}

	status := model.StatusFor(record)
	e.logger.Info("Extracted shipment data", slog.String("document_id", documentID), slog.Int("found", record.Found()), slog.String("status", string(status)))

	return model.ExtractionResult{Record: record, Status: status}
}

// ParseShipmentRecord parses the model output into a record. Code fences are
// stripped first. Valid JSON that is not an object yields an empty record;
// unknown keys are ignored and values that are neither strings nor numbers are absent.
func ParseShipmentRecord(raw string) (model.ShipmentRecord, error) {
	record := model.ShipmentRecord{}

	text := stripCodeFence(raw)
	if !gjson.Valid(text) {
		return record, fmt.Errorf("model output is not valid JSON")
	}

	parsed := gjson.Parse(text)
	if !parsed.IsObject() {
		return record, nil
	}

	for _, key := range model.ShipmentFields {
		value := parsed.Get(gjson.Escape(key))
		var field *string
		switch value.Type {
		case gjson.String:
			if value.Str != "" {
				s := value.Str
				field = &s
			}
		case gjson.Number:
			// Raw keeps the literal as written, e.g. 1500.00.
			s := value.Raw
			field = &s
		}
		*record.Field(key) = field
	}

	return record, nil
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		parts := strings.Split(text, "```")
		text = parts[1]
		text = strings.TrimPrefix(text, "json")
	}
	return strings.TrimSpace(text)
}
