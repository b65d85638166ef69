package elasticsearch

import (
	"context"
	"fmt"
	"time"
	"versalex-ingest/config"
	"versalex-ingest/internal/dto"
	"versalex-ingest/internal/model"
	"versalex-ingest/internal/repository"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/operator"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

type elasticsearchEventRepository struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewElasticsearchEventRepository(cfg *config.Config) (repository.EventRepository, error) {
	esCfgForTyped := elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Transport: newTransport(),
	}

	typedClient, err := elasticsearch.NewTypedClient(esCfgForTyped)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Typed Elasticsearch Client in Repository")
		return nil, err
	}

	return &elasticsearchEventRepository{
		esTypedClient: typedClient,
		indexPrefix:   cfg.Elasticsearch.EventIndex,
	}, nil
}

// sortableFields are the record fields mapped as keywords by the index template.
var sortableFields = map[string]bool{
	model.FieldTimestamp: true,
	model.FieldHost:      true,
	model.FieldType:      true,
	model.FieldThread:    true,
	model.FieldThreadID:  true,
	model.FieldEventID:   true,
}

func termsFilter(field string, values []string) types.Query {
	terms := make([]types.FieldValue, len(values))
	for i, v := range values {
		terms[i] = v
	}
	return types.Query{
		Terms: &types.TermsQuery{
			TermsQuery: map[string]types.TermsQueryField{
				field: terms,
			},
		},
	}
}

func buildSearchRequest(req dto.EventSearchRequest) *search.Request {
	queryParts := []types.Query{}

	startTimeStr := req.StartTime.Format(time.RFC3339)
	endTimeStr := req.EndTime.Format(time.RFC3339)

	queryParts = append(queryParts, types.Query{
		Range: map[string]types.RangeQuery{
			model.FieldTimestamp: types.DateRangeQuery{
				Gte: &startTimeStr,
				Lte: &endTimeStr,
			},
		},
	})

	if req.Query != "" {
		queryParts = append(queryParts, types.Query{
			QueryString: &types.QueryStringQuery{
				Query:  req.Query,
				Fields: []string{model.FieldMessage, model.TextKey, model.FieldThread, "vlhost"},
				DefaultOperator: &operator.Operator{
					Name: "AND",
				},
			},
		})
	}
	if len(req.Types) > 0 {
		queryParts = append(queryParts, termsFilter(model.FieldType, req.Types))
	}
	if len(req.Threads) > 0 {
		queryParts = append(queryParts, termsFilter(model.FieldThread, req.Threads))
	}
	if len(req.Hosts) > 0 {
		queryParts = append(queryParts, termsFilter(model.FieldHost, req.Hosts))
	}

	from := (req.Page - 1) * req.Size
	order := sortorder.Desc
	if req.SortOrder == "asc" {
		order = sortorder.Asc
	}
	sortField := req.SortBy
	if !sortableFields[sortField] {
		log.Warn().Str("sort_field", req.SortBy).Msg("Unknown sort field, sorting by timestamp")
		sortField = model.FieldTimestamp
	}

	return &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Filter: queryParts,
			},
		},
		Size: &req.Size,
		From: &from,
		Sort: []types.SortCombinations{
			types.SortOptions{
				SortOptions: map[string]types.FieldSort{
					sortField: {Order: &order},
				},
			},
		},
	}
}

func (r *elasticsearchEventRepository) Search(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	indexPattern := fmt.Sprintf("%s-*", r.indexPrefix)

	res, err := r.esTypedClient.Search().
		Index(indexPattern).
		Request(buildSearchRequest(req)).
		Do(ctx)

	if err != nil {
		log.Error().Err(err).Msg("Error executing Elasticsearch search via TypedClient")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	events := make([]model.Record, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var record model.Record
		if hit.Source_ != nil {
			if err := json.Unmarshal(hit.Source_, &record); err != nil {
				log.Error().Err(err).Msg("Error unmarshalling Elasticsearch hit source")
				continue
			}
			events = append(events, record)
		}
	}

	var total int64
	if res.Hits.Total != nil {
		total = res.Hits.Total.Value
	}
	response := &dto.EventSearchResponse{
		Events:     events,
		TotalCount: total,
		Page:       req.Page,
		Size:       req.Size,
	}

	log.Debug().Int64("total_hits", response.TotalCount).Int("returned_hits", len(response.Events)).Msg("Elasticsearch search successful")
	return response, nil
}
