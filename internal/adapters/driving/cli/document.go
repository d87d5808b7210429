package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcadia-bio/litindex/internal/core/domain"
	"github.com/arcadia-bio/litindex/internal/normalise"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage catalog documents",
	Long:  `Add, list, view, withdraw, or remove documents from the catalog.`,
}

var documentAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add or update a document from a file",
	Long: `Adds a document to the catalog and queues it for indexing.

JSON files are parsed as records with id, title, abstract and full_text
fields. Plain text and markdown files use the file name as the ID and the
first line as the title.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentAdd,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog documents",
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentTextCmd = &cobra.Command{
	Use:   "text [doc-id]",
	Short: "Print document full text",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentText,
}

var documentWithdrawCmd = &cobra.Command{
	Use:   "withdraw [doc-id]",
	Short: "Withdraw a document from search results",
	Long: `Marks a document withdrawn, e.g. after a retraction notice. Withdrawn
documents stay in the catalog but never appear in search results.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentWithdraw,
}

var documentRemoveCmd = &cobra.Command{
	Use:   "remove [doc-id]",
	Short: "Remove a document from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentRemove,
}

// withdrawUndo reinstates instead of withdrawing.
var withdrawUndo bool

func init() {
	documentWithdrawCmd.Flags().BoolVar(&withdrawUndo, "undo", false, "reinstate a withdrawn document")

	documentCmd.AddCommand(documentAddCmd)
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentTextCmd)
	documentCmd.AddCommand(documentWithdrawCmd)
	documentCmd.AddCommand(documentRemoveCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentAdd(cmd *cobra.Command, args []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := parseDocumentFile(filepath.Base(path), data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	ctx := cmd.Context()
	if err := catalog.PutDocument(ctx, doc); err != nil {
		return fmt.Errorf("storing document: %w", err)
	}

	if indexQueue != nil && doc.FullText != "" {
		if err := indexQueue.Enqueue(ctx, doc.ID, domain.PriorityBulk); err != nil {
			return fmt.Errorf("queueing document: %w", err)
		}
	}

	cmd.Printf("Document %s added and queued for indexing.\n", doc.ID)
	return nil
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	docs, err := catalog.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents in the catalog.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		if docs[i].Title != "" {
			cmd.Printf("    Title: %s\n", docs[i].Title)
		}
		if docs[i].Withdrawn {
			cmd.Printf("    Withdrawn: yes\n")
		}
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	doc, err := catalog.GetDocument(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n\n", doc.ID)
	cmd.Printf("  Title:     %s\n", doc.Title)
	if doc.Abstract != "" {
		cmd.Printf("  Abstract:  %s\n", doc.Abstract)
	}
	cmd.Printf("  Withdrawn: %t\n", doc.Withdrawn)
	cmd.Printf("  Text:      %d bytes\n", len(doc.FullText))
	cmd.Printf("  Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runDocumentText(cmd *cobra.Command, args []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	text, err := catalog.GetFullText(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document text: %w", err)
	}

	cmd.Println(text)
	return nil
}

func runDocumentWithdraw(cmd *cobra.Command, args []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	docID := args[0]
	ctx := cmd.Context()
	withdrawn := !withdrawUndo

	if err := catalog.SetWithdrawn(ctx, docID, withdrawn); err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	// The queue entry propagates the flag to the vector index.
	if indexQueue != nil {
		if err := indexQueue.Enqueue(ctx, docID, domain.PriorityInteractive); err != nil {
			return fmt.Errorf("queueing document: %w", err)
		}
	}

	if withdrawn {
		cmd.Printf("Document %s withdrawn from search results.\n", docID)
	} else {
		cmd.Printf("Document %s reinstated.\n", docID)
	}
	return nil
}

func runDocumentRemove(cmd *cobra.Command, args []string) error {
	if err := ensureCatalog(cmd); err != nil {
		return err
	}
	if catalog == nil {
		return errors.New("catalog not configured")
	}

	docID := args[0]
	ctx := cmd.Context()

	if err := catalog.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to remove document: %w", err)
	}

	// The queue entry makes a worker cascade chunk and vector deletion.
	if indexQueue != nil {
		if err := indexQueue.Enqueue(ctx, docID, domain.PriorityInteractive); err != nil {
			return fmt.Errorf("queueing cleanup: %w", err)
		}
	}

	cmd.Printf("Document %s removed from the catalog.\n", docID)
	return nil
}

// parseDocumentFile maps a file onto a catalog document. JSON records may
// carry their own ID; other formats derive it from the file name. Markup
// formats are normalised to plain text before storage.
func parseDocumentFile(name string, data []byte) (*domain.Document, error) {
	id := strings.TrimSuffix(name, filepath.Ext(name))
	text := string(data)

	switch filepath.Ext(name) {
	case ".json":
		var rec struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Abstract string `json:"abstract"`
			FullText string `json:"full_text"`
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, err
		}
		if rec.ID != "" {
			id = rec.ID
		}
		return &domain.Document{
			ID:       id,
			Title:    rec.Title,
			Abstract: rec.Abstract,
			FullText: rec.FullText,
		}, nil

	case ".md":
		return &domain.Document{
			ID:       id,
			Title:    normalise.MarkdownTitle(text, name),
			FullText: normalise.Markdown(text),
		}, nil

	case ".html":
		return &domain.Document{
			ID:       id,
			Title:    normalise.HTMLTitle(text, name),
			FullText: normalise.HTML(text),
		}, nil
	}

	title := text
	if line, _, found := strings.Cut(text, "\n"); found {
		title = line
	}
	return &domain.Document{
		ID:       id,
		Title:    strings.TrimSpace(title),
		FullText: text,
	}, nil
}
