// Package cache is the read-through cache for course reads. Entries
// are written on miss and dropped on every course mutation; staleness
// between those points is bounded by the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mvoronin/learnhub/internal/models"
)

const DefaultTTL = 10 * time.Minute

var ErrCacheMiss = errors.New("cache miss")

type CourseCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCourseCache(client *redis.Client, ttl time.Duration) *CourseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CourseCache{client: client, ttl: ttl}
}

func (c *CourseCache) GetCourse(ctx context.Context, id uint) (*models.Course, error) {
	data, err := c.client.Get(ctx, courseKey(id)).Bytes()
	if err != nil {
		return nil, ErrCacheMiss
	}
	var course models.Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, ErrCacheMiss
	}
	return &course, nil
}

func (c *CourseCache) PutCourse(ctx context.Context, course *models.Course) error {
	data, err := json.Marshal(course)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, courseKey(course.ID), data, c.ttl).Err()
}

// CourseList is the cached shape of one list page.
type CourseList struct {
	Total int64           `json:"total"`
	Items []models.Course `json:"items"`
}

func (c *CourseCache) GetList(ctx context.Context, page, size int) (*CourseList, error) {
	data, err := c.client.Get(ctx, listKey(page, size)).Bytes()
	if err != nil {
		return nil, ErrCacheMiss
	}
	var list CourseList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, ErrCacheMiss
	}
	return &list, nil
}

func (c *CourseCache) PutList(ctx context.Context, page, size int, list *CourseList) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listKey(page, size), data, c.ttl).Err()
}

// Invalidate drops the single-course entry and all cached list pages.
func (c *CourseCache) Invalidate(ctx context.Context, id uint) error {
	keys := []string{courseKey(id)}
	iter := c.client.Scan(ctx, 0, "courses:*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, keys...).Err()
}

func courseKey(id uint) string {
	return fmt.Sprintf("course:%d", id)
}

func listKey(page, size int) string {
	return fmt.Sprintf("courses:p%d:s%d", page, size)
}
