package search

import (
	"context"
	"fmt"
	"livechat/domain/chat"
	"livechat/domain/search"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/blugelabs/bluge"
)

const (
	fieldText     = "text"
	fieldComments = "comments"
	fieldSender   = "sender"
	fieldLang     = "lang"
	fieldCreated  = "created_at"

	undeterminedLang = "und"
)

// Index keeps a full-text index of messages and their comments.
// Only identities are returned by Search, the store stays the source of truth.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewIndex(writer *bluge.Writer, log *slog.Logger) *Index {
	return &Index{writer: writer, log: log}
}

// Index adds or replaces the documents of the given messages in one batch.
func (i *Index) Index(ctx context.Context, messages ...chat.Message) error {
	if len(messages) == 0 {
		return nil
	}
	batch := bluge.NewBatch()
	for _, m := range messages {
		if m.ID == "" {
			continue
		}
		doc := toDocument(m)
		batch.Update(doc.ID(), doc)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.writer.Batch(batch)
}

func toDocument(m chat.Message) *bluge.Document {
	comments := make([]string, 0, len(m.Comments))
	for _, c := range m.Comments {
		comments = append(comments, c.Text)
	}
	return bluge.NewDocument(m.ID).
		AddField(bluge.NewTextField(fieldText, m.Text)).
		AddField(bluge.NewTextField(fieldComments, strings.Join(comments, "\n"))).
		AddField(bluge.NewKeywordField(fieldSender, m.Sender)).
		AddField(bluge.NewKeywordField(fieldLang, DetectLanguage(m.Text))).
		AddField(bluge.NewDateTimeField(fieldCreated, m.CreatedAt).Sortable())
}

// DetectLanguage returns the ISO 639-1 code of text, "und" when unknown.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return undeterminedLang
}

// Search returns the ids of matching messages, most recent first.
func (i *Index) Search(ctx context.Context, q search.Query) ([]string, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer reader.Close()

	limit := q.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	request := bluge.NewTopNSearch(limit, buildQuery(q)).SortBy([]string{"-" + fieldCreated})
	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	var ids []string
	match, err := matches.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field == "_id" {
				ids = append(ids, string(value))
				return false
			}
			return true
		})
		if err != nil {
			break
		}
		match, err = matches.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	i.log.Debug("Index searched", "terms", q.Terms, "lang", q.Lang, "hits", len(ids))
	return ids, nil
}

func buildQuery(q search.Query) bluge.Query {
	if q.IsEmpty() {
		return bluge.NewMatchAllQuery()
	}
	query := bluge.NewBooleanQuery()
	if q.Terms != "" {
		terms := bluge.NewBooleanQuery().
			AddShould(bluge.NewMatchQuery(q.Terms).SetField(fieldText)).
			AddShould(bluge.NewMatchQuery(q.Terms).SetField(fieldComments)).
			SetMinShould(1)
		query.AddMust(terms)
	}
	if q.Lang != "" {
		query.AddMust(bluge.NewTermQuery(q.Lang).SetField(fieldLang))
	}
	if q.Sender != "" {
		query.AddMust(bluge.NewTermQuery(q.Sender).SetField(fieldSender))
	}
	return query
}
