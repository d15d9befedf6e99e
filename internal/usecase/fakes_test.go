package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"NewsIngest/internal/domain"
)

type fakeSources struct {
	sources      []domain.Source
	touched      []string
	touchedTimes []time.Time
}

func (f *fakeSources) Active(ctx context.Context) ([]domain.Source, error) {
	var out []domain.Source
	for _, s := range f.sources {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSources) ByID(ctx context.Context, id string) (domain.Source, error) {
	for _, s := range f.sources {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Source{}, domain.ErrSourceNotFound
}

func (f *fakeSources) TouchLastScraped(ctx context.Context, id string, at time.Time) error {
	f.touched = append(f.touched, id)
	f.touchedTimes = append(f.touchedTimes, at)
	return nil
}

type fakeArticles struct {
	mu      sync.Mutex
	nextID  int
	byID    map[string]domain.Article
	byHash  map[string]string
	inserts int
}

func newFakeArticles() *fakeArticles {
	return &fakeArticles{byID: map[string]domain.Article{}, byHash: map[string]string{}}
}

func (f *fakeArticles) Insert(ctx context.Context, article domain.Article) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, dup := f.byHash[article.Hash]; dup {
		return "", domain.ErrDuplicateArticle
	}
	f.nextID++
	article.ID = "article-" + strconv.Itoa(f.nextID)
	f.byID[article.ID] = article
	f.byHash[article.Hash] = article.ID
	f.inserts++
	return article.ID, nil
}

func (f *fakeArticles) ByID(ctx context.Context, id string) (domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, ok := f.byID[id]
	if !ok {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return article, nil
}

func (f *fakeArticles) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byHash[hash]
	return ok, nil
}

func (f *fakeArticles) CountByDetectedCategory(ctx context.Context, key, language string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, a := range f.byID {
		if a.DetectedCategory == key && (language == "" || a.Language == language) {
			count++
		}
	}
	return count, nil
}

func (f *fakeArticles) SetStatus(ctx context.Context, id string, status domain.ArticleStatus, publishedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	article, ok := f.byID[id]
	if !ok {
		return domain.ErrArticleNotFound
	}
	article.Status = status
	if !publishedAt.IsZero() {
		article.PublishedAt = publishedAt
	}
	f.byID[id] = article
	return nil
}

func (f *fakeArticles) Published(ctx context.Context, categoryID, language string, limit int) ([]domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []domain.Article
	for _, a := range f.byID {
		if a.Status != domain.StatusPublished {
			continue
		}
		if categoryID != "" && a.CategoryID != categoryID {
			continue
		}
		if language != "" && a.Language != language {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// seed stores an article directly, bypassing Insert bookkeeping checks.
func (f *fakeArticles) seed(article domain.Article) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	if article.ID == "" {
		article.ID = "article-" + strconv.Itoa(f.nextID)
	}
	if article.Hash == "" {
		article.Hash = "hash-" + article.ID
	}
	f.byID[article.ID] = article
	f.byHash[article.Hash] = article.ID
	return article.ID
}

type fakeCategories struct {
	mu      sync.Mutex
	nextID  int
	byKey   map[string]domain.Category
	created []domain.Category
}

func newFakeCategories() *fakeCategories {
	return &fakeCategories{byKey: map[string]domain.Category{}}
}

func (f *fakeCategories) ByKey(ctx context.Context, key, language string) (domain.Category, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cat, ok := f.byKey[key+"|"+language]; ok {
		return cat, true, nil
	}
	if cat, ok := f.byKey[key+"|"]; ok {
		return cat, true, nil
	}
	return domain.Category{}, false, nil
}

func (f *fakeCategories) Create(ctx context.Context, category domain.Category) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	category.ID = "category-" + strconv.Itoa(f.nextID)
	f.byKey[category.Key+"|"+category.Language] = category
	f.created = append(f.created, category)
	return category.ID, nil
}

type logRecord struct {
	log    domain.JobLog
	status domain.JobLogStatus
	meta   map[string]any
	done   bool
}

type fakeJobLogs struct {
	mu      sync.Mutex
	nextID  int
	records map[string]*logRecord
}

func newFakeJobLogs() *fakeJobLogs {
	return &fakeJobLogs{records: map[string]*logRecord{}}
}

func (f *fakeJobLogs) Start(ctx context.Context, log domain.JobLog) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := "log-" + strconv.Itoa(f.nextID)
	f.records[id] = &logRecord{log: log, status: domain.LogRunning}
	return id, nil
}

func (f *fakeJobLogs) Finish(ctx context.Context, id string, status domain.JobLogStatus, meta map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rec, ok := f.records[id]
	if !ok {
		return fmt.Errorf("unknown job log %s", id)
	}
	rec.status = status
	rec.meta = meta
	rec.done = true
	return nil
}

func (f *fakeJobLogs) FinalizeStale(ctx context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, rec := range f.records {
		if !rec.done && rec.log.StartTime.Before(cutoff) {
			rec.status = domain.LogFailed
			rec.done = true
			n++
		}
	}
	return n, nil
}

// single returns the only record; fails the caller when there are more.
func (f *fakeJobLogs) single() (*logRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.records) != 1 {
		return nil, false
	}
	for _, rec := range f.records {
		return rec, true
	}
	return nil, false
}

type fakeAdapter struct {
	sourceType domain.SourceType
	items      map[string][]domain.ScrapedItem
	err        map[string]error
}

func (f *fakeAdapter) Type() domain.SourceType { return f.sourceType }

func (f *fakeAdapter) Items(ctx context.Context, source domain.Source) ([]domain.ScrapedItem, error) {
	if err := f.err[source.ID]; err != nil {
		return nil, err
	}
	return f.items[source.ID], nil
}
