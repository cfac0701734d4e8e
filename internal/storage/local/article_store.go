// Package local implements filesystem persistence: the JSON article store
// and a directory-backed blob store for snapshot mirrors.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
)

// RawFile is the shared raw log of qualifying articles for every site.
const RawFile = "raw.json"

// TopFile names the ranked snapshot for a site slug.
func TopFile(slug string) string {
	return "top_articles_" + slug + ".json"
}

// ArticleStore keeps the raw log and ranked snapshots as JSON files in one
// directory. Every operation holds the store lock for its whole
// read-modify-write cycle; the files are the only state.
type ArticleStore struct {
	mu     sync.Mutex
	dir    string
	clock  crawler.Clock
	logger *zap.Logger
}

// NewArticleStore prepares dir and returns a store rooted there.
func NewArticleStore(dir string, clock crawler.Clock, logger *zap.Logger) (*ArticleStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	if clock == nil {
		clock = systemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArticleStore{dir: dir, clock: clock, logger: logger.Named("article_store")}, nil
}

// AppendIfQualifies replaces any raw entry with the same URL and appends article.
func (s *ArticleStore) AppendIfQualifies(ctx context.Context, article crawler.Article, executeTime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _ := s.read(RawFile)
	kept := raw.Articles[:0]
	for _, existing := range raw.Articles {
		if existing.URL != article.URL {
			kept = append(kept, existing)
		}
	}
	raw.Articles = append(kept, article)
	raw.ExecuteTime = executeTime
	return s.write(RawFile, raw)
}

// RecomputeTop ranks the site's recent raw entries and overwrites its snapshot.
func (s *ArticleStore) RecomputeTop(ctx context.Context, site crawler.Site, executeTime time.Time) (crawler.ArticleData, error) {
	if err := ctx.Err(); err != nil {
		return crawler.ArticleData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, _ := s.read(RawFile)
	top := crawler.ArticleData{
		ExecuteTime: executeTime,
		Articles:    crawler.RankTop(raw.Articles, site.ID, s.clock.Now(), crawler.RecentWindow, crawler.TopLimit),
	}
	if err := s.write(TopFile(site.Slug), top); err != nil {
		return crawler.ArticleData{}, err
	}
	return top.Clone(), nil
}

// LoadTop returns the persisted snapshot, or one derived from the raw log when
// no readable snapshot exists. Nothing is written.
func (s *ArticleStore) LoadTop(ctx context.Context, site crawler.Site) (crawler.ArticleData, error) {
	if err := ctx.Err(); err != nil {
		return crawler.ArticleData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if top, ok := s.read(TopFile(site.Slug)); ok {
		return top, nil
	}
	raw, ok := s.read(RawFile)
	if !ok {
		return emptyData(), nil
	}
	return crawler.ArticleData{
		ExecuteTime: raw.ExecuteTime,
		Articles:    crawler.RankTop(raw.Articles, site.ID, s.clock.Now(), crawler.RecentWindow, crawler.TopLimit),
	}, nil
}

// read loads name; a missing or corrupt file yields an empty snapshot and false.
func (s *ArticleStore) read(name string) (crawler.ArticleData, bool) {
	path := filepath.Join(s.dir, name)
	body, err := os.ReadFile(path) // #nosec G304 -- names are fixed by the store.
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read snapshot; treating as empty", zap.String("path", path), zap.Error(err))
		}
		return emptyData(), false
	}
	var data crawler.ArticleData
	if err := json.Unmarshal(body, &data); err != nil {
		s.logger.Warn("corrupt snapshot; treating as empty", zap.String("path", path), zap.Error(err))
		return emptyData(), false
	}
	if data.Articles == nil {
		data.Articles = []crawler.Article{}
	}
	return data, true
}

// write replaces name atomically via a temp file in the same directory.
func (s *ArticleStore) write(name string, data crawler.ArticleData) error {
	if data.Articles == nil {
		data.Articles = []crawler.Article{}
	}
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func emptyData() crawler.ArticleData {
	return crawler.ArticleData{Articles: []crawler.Article{}}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
