package index

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

// UpsertBlog writes the blog, replacing any existing document with the same
// source URL and reusing its ID. On success blog.ID is set.
func (s *Store) UpsertBlog(ctx context.Context, blog *models.Blog) error {
	if err := s.writable(); err != nil {
		return err
	}
	if blog.SourceURL == "" {
		return fmt.Errorf("blog requires a source URL")
	}

	existing, err := s.findOneByTerm(ctx, s.blogsIndex(), "source_url", blog.SourceURL)
	if err != nil {
		return fmt.Errorf("look up blog by source URL: %w", err)
	}

	if existing != nil {
		blog.ID = existing.ID
	} else {
		blog.ID = uuid.NewString()
	}

	if err := s.indexDoc(ctx, s.blogsIndex(), blog.ID, blogToDoc(blog)); err != nil {
		return err
	}

	s.log.Debug("upserted blog",
		logger.String("blog_id", blog.ID),
		logger.String("source_url", blog.SourceURL),
	)
	return nil
}

// GetBlog fetches one blog by ID. Returns nil when the blog does not exist.
func (s *Store) GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	raw, found, err := s.getDoc(ctx, s.blogsIndex(), id)
	if err != nil || !found {
		return nil, err
	}
	var doc blogDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode blog %s: %w", id, err)
	}
	return docToBlog(id, doc), nil
}
