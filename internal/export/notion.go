package export

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/config"
)

// pageCreator is the subset of notionapi.PageService used here.
type pageCreator interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Notion exports rows into a Notion database.
type Notion struct {
	pages      pageCreator
	databaseID notionapi.DatabaseID
	logger     *zap.Logger
}

// New returns a Notion exporter when credentials are configured, otherwise Disabled.
func New(cfg config.NotionConfig, logger *zap.Logger) Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.APIKey == "" || cfg.DatabaseID == "" {
		logger.Warn("notion export not configured; exports return manual data")
		return Disabled{}
	}
	client := notionapi.NewClient(notionapi.Token(cfg.APIKey))
	return newNotion(client.Page, cfg.DatabaseID, logger)
}

func newNotion(pages pageCreator, databaseID string, logger *zap.Logger) *Notion {
	return &Notion{pages: pages, databaseID: notionapi.DatabaseID(databaseID), logger: logger.Named("notion")}
}

func (n *Notion) Available() bool { return true }

func (n *Notion) ExportTicket(ctx context.Context, data Data) (Result, error) {
	page, err := n.pages.Create(ctx, n.pageRequest(data))
	if err != nil {
		return Result{}, fmt.Errorf("notion: create page for ticket %d: %w", data.TicketID, err)
	}
	n.logger.Info("ticket exported", zap.Int64("ticket_id", data.TicketID), zap.String("page_url", page.URL))
	return Result{PageID: page.ID.String(), PageURL: page.URL}, nil
}

func (n *Notion) pageRequest(data Data) *notionapi.PageCreateRequest {
	added := notionapi.Date(data.Added)
	return &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: n.databaseID,
		},
		Properties: notionapi.Properties{
			"Ticket ID Link": notionapi.TitleProperty{
				Title: []notionapi.RichText{{
					Text: &notionapi.Text{Content: data.Title, Link: &notionapi.Link{Url: data.ThreadURL}},
				}},
			},
			"Domain": notionapi.SelectProperty{
				Select: notionapi.Option{Name: data.Domain},
			},
			"Ticket Summary": notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: data.Summary}}},
			},
			"Priority": notionapi.SelectProperty{
				Select: notionapi.Option{Name: data.Priority},
			},
			"Added": notionapi.DateProperty{
				Date: &notionapi.DateObject{Start: &added},
			},
			"Macro Needed": notionapi.CheckboxProperty{Checkbox: false},
		},
	}
}
