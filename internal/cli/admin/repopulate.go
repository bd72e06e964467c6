package admin

import (
	"context"
	"fmt"
	"log"

	openailib "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/recollect-labs/recollect/internal/config"
	"github.com/recollect-labs/recollect/internal/extractor"
	"github.com/recollect-labs/recollect/internal/openai"
	"github.com/recollect-labs/recollect/internal/pagination"
	"github.com/recollect-labs/recollect/internal/repository"
	"github.com/recollect-labs/recollect/internal/service"
)

const repopulatePageSize = 100

// RepopulateCmd returns the repopulate command. Deterministic chunk ids make
// a full re-index an idempotent overwrite, so it is safe to run against a
// live database.
func RepopulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repopulate",
		Short: "Rebuild the vector index from all stored content",
		Long:  "Re-extract and re-ingest every content item for every user, overwriting existing chunks",
		RunE:  runRepopulate,
	}
}

func runRepopulate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("repopulate requires RECOLLECT_OPENAI_API_KEY")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	contentRepo := repository.NewContentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      openailib.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
		ChatModel:           cfg.ChatModel,
	})
	ingestSvc := service.NewIngestServiceWithConfig(client, chunkRepo, service.ChunkConfig{
		Size:    cfg.ChunkSize,
		Overlap: cfg.ChunkOverlap,
	})
	extr := extractor.New(extractor.WithTwitterBearerToken(cfg.TwitterBearerToken))

	users, err := userRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var indexed, skipped, failed int
	for _, user := range users {
		var cursor *pagination.Cursor
		for {
			page, err := contentRepo.ListByUserWithCursor(ctx, user.ID, "", cursor, repopulatePageSize)
			if err != nil {
				return fmt.Errorf("failed to list content for user %s: %w", user.ID, err)
			}

			for _, content := range page.Items {
				var extracted string
				if content.Link != "" {
					extracted = extr.Extract(ctx, content.Type, content.Link)
				}

				count, err := ingestSvc.Ingest(ctx, content, extracted)
				switch {
				case err != nil:
					log.Printf("repopulate: content %s failed: %v", content.ID, err)
					failed++
				case count == 0:
					skipped++
				default:
					indexed++
				}
			}

			if !page.HasMore || page.NextCursor == "" {
				break
			}
			cursor, err = pagination.DecodeCursor(page.NextCursor)
			if err != nil {
				return fmt.Errorf("failed to decode pagination cursor: %w", err)
			}
		}
	}

	fmt.Printf("Repopulate finished: %d indexed, %d skipped, %d failed across %d users\n",
		indexed, skipped, failed, len(users))
	return nil
}
