package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/tmsrag"
	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/pipeline"
	"github.com/siherrmann/tmsrag/core/registry"
	"github.com/siherrmann/tmsrag/database"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

const billOfLading = `STRAIGHT BILL OF LADING

BOL Number: BOL-88213
Shipper: Fabrikam Components
Consignee: Tailspin Toys Warehouse 4
Carrier: Blue Yonder Logistics
Mode: LTL
Pieces: 12 pallets, 8,450 kg`

const invoice = `FREIGHT INVOICE

Invoice: INV-5531 for shipment BOL-88213
Carrier: Blue Yonder Logistics
Linehaul: 2,140.00 CAD
Fuel surcharge: 310.50 CAD
Payment terms: Net 30`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Paragraph chunking, Gemini embeddings and Claude answers.
	// Needs GEMINI_API_KEY and ANTHROPIC_API_KEY.
	config := model.DefaultConfig()
	config.Upload.Dir = "./uploads"
	config.Chunking.Strategy = model.ChunkingParagraph
	config.Chunking.Size = 400
	config.Retrieval.TopK = 2
	config.Embedding = model.EmbeddingConfig{
		Provider:  model.ProviderGemini,
		Model:     "gemini-embedding-001",
		APIKeyEnv: "GEMINI_API_KEY",
		Dimension: 768,
	}
	config.LLM = model.LLMConfig{
		Provider:  model.ProviderAnthropic,
		Model:     "claude-3-5-haiku-latest",
		APIKeyEnv: "ANTHROPIC_API_KEY",
		MaxTokens: 512,
	}

	embed, err := pipeline.NewEmbedder(ctx, config.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}
	generate, err := llm.NewGenerator(ctx, config.LLM)
	if err != nil {
		log.Fatalf("Failed to create generator: %v", err)
	}

	service, err := tmsrag.New(config, dbConfig, embed, generate)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	// Keep the registry in memory for this run
	service.SetRegistry(registry.NewMemoryRegistry())

	// Approximate search instead of the exact default
	err = service.ChangeIndexType(ctx, database.IndexTypeHNSW, map[string]interface{}{"m": 16, "ef_construction": 64})
	if err != nil {
		log.Fatalf("Failed to change index type: %v", err)
	}

	documents := map[string]string{
		"bill_of_lading.txt": billOfLading,
		"invoice.md":         invoice,
	}
	ids := map[string]string{}
	for filename, content := range documents {
		doc, err := service.UploadDocument(ctx, filename, []byte(content))
		if err != nil {
			log.Fatalf("Failed to upload %s: %v", filename, err)
		}
		ids[filename] = doc.RID.String()
		fmt.Printf("Uploaded %s as %s (%d chunks)\n", filename, doc.RID, doc.ChunkCount)
	}

	listed, err := service.ListDocuments(ctx)
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}
	fmt.Printf("\n%d documents registered\n", len(listed))

	// Each question only sees the chunks of its own document
	questions := map[string]string{
		"bill_of_lading.txt": "How many pallets are shipped?",
		"invoice.md":         "What is the fuel surcharge?",
	}
	for filename, question := range questions {
		result, err := service.Ask(ctx, ids[filename], question)
		if err != nil {
			log.Fatalf("Failed to answer question: %v", err)
		}
		fmt.Printf("\n[%s] %s\n%s\n", filename, question, result.Answer)
		fmt.Printf("Confidence: %.3f (%s)\n", result.Confidence.Score, result.Confidence.Category)
	}

	for filename, id := range ids {
		extraction, err := service.Extract(ctx, id)
		if err != nil {
			log.Fatalf("Failed to extract shipment data: %v", err)
		}
		fmt.Printf("\n[%s] extraction %s, %d of %d fields found\n", filename, extraction.Status, extraction.Record.Found(), len(model.ShipmentFields))
	}

	// Back to exact search
	if err := service.ChangeIndexType(ctx, database.IndexTypeExact, nil); err != nil {
		log.Fatalf("Failed to change index type: %v", err)
	}

	for _, id := range ids {
		if err := service.DeleteDocument(ctx, id); err != nil {
			log.Fatalf("Failed to delete document: %v", err)
		}
	}

	fmt.Println("\nAdvanced example completed successfully!")
}
