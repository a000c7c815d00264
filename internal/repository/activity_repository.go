package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/grid_export_service/pkg/gridexport"
)

const scrollPageSize = 1000

// ActivityRepository reads the activity-log demo grid from Elasticsearch.
// Documents are schemaless; every source field becomes a row key.
type ActivityRepository struct {
	es    *elastic.Client
	index string
}

func NewActivityRepository(es *elastic.Client, index string) *ActivityRepository {
	return &ActivityRepository{es: es, index: index}
}

func (r *ActivityRepository) Provider() gridexport.RowProvider {
	return &activityProvider{repo: r}
}

type activityProvider struct {
	repo *ActivityRepository
}

var _ gridexport.RowProvider = (*activityProvider)(nil)

// FetchRows pages with from/size; a non-positive limit switches to the
// scroll API so full exports are not capped by the index max_result_window.
func (p *activityProvider) FetchRows(ctx context.Context, offset, limit int) ([]gridexport.Row, error) {
	if limit <= 0 {
		return p.scrollAll(ctx, offset)
	}
	res, err := p.repo.es.Search().
		Index(p.repo.index).
		Query(elastic.NewMatchAllQuery()).
		Sort("timestamp", false).
		From(offset).
		Size(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.repo.index, err)
	}
	return hitsToRows(res.Hits.Hits)
}

func (p *activityProvider) scrollAll(ctx context.Context, skip int) ([]gridexport.Row, error) {
	scroll := p.repo.es.Scroll(p.repo.index).
		Query(elastic.NewMatchAllQuery()).
		Sort("timestamp", false).
		Size(scrollPageSize)
	defer scroll.Clear(context.Background())

	var rows []gridexport.Row
	for {
		res, err := scroll.Do(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", p.repo.index, err)
		}
		page, err := hitsToRows(res.Hits.Hits)
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
	}
	if skip >= len(rows) {
		return nil, nil
	}
	return rows[skip:], nil
}

func (p *activityProvider) Close() error { return nil }

func hitsToRows(hits []*elastic.SearchHit) ([]gridexport.Row, error) {
	rows := make([]gridexport.Row, 0, len(hits))
	for _, hit := range hits {
		var m map[string]interface{}
		if err := json.Unmarshal(hit.Source, &m); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", hit.Id, err)
		}
		rows = append(rows, gridexport.Row(m))
	}
	return rows, nil
}
