package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/tmsrag"
	"github.com/siherrmann/tmsrag/core/llm"
	"github.com/siherrmann/tmsrag/core/pipeline"
	"github.com/siherrmann/tmsrag/helper"
	"github.com/siherrmann/tmsrag/model"
)

const rateConfirmation = `RATE CONFIRMATION

Load Number: SHP-2024-0042
Carrier: Acme Freight LLC
Equipment: 53' Dry Van
Mode: FTL

Shipper: Northwind Traders, Inc., 1200 Harbor Blvd, Oakland, CA
Pickup: 03/14/2024 08:00 AM

Consignee: Contoso Ltd, 55 Lake Shore Dr, Chicago, IL
Delivery: 03/16/2024 05:00 PM

Total Weight: 42,000 lbs
Line Haul Rate: $1,500.00 USD`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Local embeddings, the generator needs GROQ_API_KEY
	config := model.DefaultConfig()
	config.Upload.Dir = "./uploads"
	config.Embedding.Provider = model.ProviderLocal
	config.Embedding.Dimension = 384

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

	fmt.Println("Uploading document...")
	doc, err := service.UploadDocument(ctx, "rate_confirmation.txt", []byte(rateConfirmation))
	if err != nil {
		log.Fatalf("Failed to upload document: %v", err)
	}
	fmt.Printf("Document uploaded with ID: %s (%d chunks)\n", doc.RID, doc.ChunkCount)

	for _, question := range []string{"Who is the carrier?", "What is the agreed rate?", "What is the hazmat class?"} {
		result, err := service.Ask(ctx, doc.RID.String(), question)
		if err != nil {
			log.Fatalf("Failed to answer question: %v", err)
		}

		fmt.Printf("\nQ: %s\n", question)
		fmt.Printf("A: %s\n", result.Answer)
		fmt.Printf("Confidence: %.3f (%s), guardrails passed: %t\n", result.Confidence.Score, result.Confidence.Category, result.PassesGuardrails)
		for i, source := range result.Sources {
			fmt.Printf("  [Source %d] similarity %.3f\n", i+1, source.SimilarityScore)
		}
	}

	extraction, err := service.Extract(ctx, doc.RID.String())
	if err != nil {
		log.Fatalf("Failed to extract shipment data: %v", err)
	}

	fmt.Printf("\nExtraction status: %s\n", extraction.Status)
	for _, key := range model.ShipmentFields {
		value := "null"
		if field := *extraction.Record.Field(key); field != nil {
			value = *field
		}
		fmt.Printf("  %-18s %s\n", key+":", value)
	}

	if err := service.DeleteDocument(ctx, doc.RID.String()); err != nil {
		log.Fatalf("Failed to delete document: %v", err)
	}

	fmt.Println("\nBasic example completed successfully!")
}
