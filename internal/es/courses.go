package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/mvoronin/learnhub/internal/models"
)

// IndexCourse upserts the course document. Callers treat failures as
// log-and-continue; search lags the primary store, it never blocks it.
func IndexCourse(ctx context.Context, client *elasticsearch.Client, course *models.Course) error {
	if client == nil {
		return nil
	}

	data, err := json.Marshal(course)
	if err != nil {
		return err
	}

	res, err := client.Index(
		CourseIndex,
		bytes.NewReader(data),
		client.Index.WithDocumentID(strconv.FormatUint(uint64(course.ID), 10)),
		client.Index.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch index: %s", res.Status())
	}
	return nil
}

func DeleteCourse(ctx context.Context, client *elasticsearch.Client, id uint) error {
	if client == nil {
		return nil
	}

	res, err := client.Delete(
		CourseIndex,
		strconv.FormatUint(uint64(id), 10),
		client.Delete.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elasticsearch delete: %s", res.Status())
	}
	return nil
}

func SearchCourses(ctx context.Context, client *elasticsearch.Client, query string, from, size int) (int64, []models.Course, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"title^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(CourseIndex),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, err
	}

	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("elasticsearch search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct{ Value int64 } `json:"total"`
			Hits  []struct {
				Source models.Course `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	courses := make([]models.Course, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		courses[i] = hit.Source
	}
	return r.Hits.Total.Value, courses, nil
}
