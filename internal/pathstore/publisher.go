package pathstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/dgallion1/docstruct/internal/tree"
)

const keyRoot = "docstruct/projects"

// Publisher mirrors persisted category trees into pathstore.
type Publisher struct {
	client *Client
	log    *slog.Logger
}

func NewPublisher(client *Client, log *slog.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// DocumentKey is the pathstore prefix for one document.
func DocumentKey(projectID, docID string) string {
	return fmt.Sprintf("%s/%s/documents/%s", keyRoot, url.PathEscape(projectID), url.PathEscape(docID))
}

// PublishTree replaces the document's published tree: the nested export at
// {doc}/tree and one record per node at {doc}/nodes/{slug path}, each linked
// to its parent.
func (p *Publisher) PublishTree(ctx context.Context, projectID, docID string, export []tree.ExportNode) error {
	prefix := DocumentKey(projectID, docID)
	if err := p.client.DeleteNode(ctx, prefix, true); err != nil {
		return fmt.Errorf("clear %s: %w", prefix, err)
	}

	if err := p.client.PutNode(ctx, prefix+"/tree", NodeRequest{
		Value:  export,
		Source: "docstruct:" + docID,
	}); err != nil {
		return fmt.Errorf("put tree: %w", err)
	}

	var walk func(nodes []tree.ExportNode, parentKey string) error
	walk = func(nodes []tree.ExportNode, parentKey string) error {
		for _, n := range nodes {
			key := prefix + "/nodes/" + n.Slug
			if parentKey != "" {
				key = parentKey + "/" + n.Slug
			}
			if err := p.client.PutNode(ctx, key, NodeRequest{
				Value: map[string]any{
					"id":         n.ID,
					"name":       n.Name,
					"depth":      n.Depth,
					"page_start": n.PageStart,
					"page_end":   n.PageEnd,
				},
				Source: "docstruct:" + docID,
			}); err != nil {
				return fmt.Errorf("put node %s: %w", key, err)
			}
			if parentKey != "" {
				if err := p.client.PutLink(ctx, LinkRequest{
					From:    key,
					To:      parentKey,
					Weight:  1,
					Summary: "section of",
				}); err != nil {
					return fmt.Errorf("link %s: %w", key, err)
				}
			}
			if err := walk(n.Children, key); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(export, ""); err != nil {
		return err
	}

	p.log.Debug("published tree", "doc_id", docID, "prefix", prefix, "roots", len(export))
	return nil
}

// RemoveDocument deletes everything published for a document.
func (p *Publisher) RemoveDocument(ctx context.Context, projectID, docID string) error {
	return p.client.DeleteNode(ctx, DocumentKey(projectID, docID), true)
}

// Close releases the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}
