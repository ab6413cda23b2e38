package sqlite

import (
	"context"
	"math"
	"sort"

	"meeting-minutes-api/internal/config"
	"meeting-minutes-api/internal/domain/entity"
)

// Searcher 在进程内对全部向量做余弦相似度排序
type Searcher struct {
	store *Store
}

func NewSearcher(store *Store) *Searcher {
	return &Searcher{store: store}
}

func (s *Searcher) Backend() string { return config.VectorBackendSQLite }

// SearchSimilar 语义与 match_minutes 一致：相似度 >= threshold，降序，最多 count 条
func (s *Searcher) SearchSimilar(ctx context.Context, embedding []float32, threshold float64, count int) (entity.SearchResult, error) {
	list, err := s.store.ListAll(ctx)
	if err != nil {
		return entity.SearchResult{}, err
	}

	matches := make([]entity.MatchedMinute, 0, len(list))
	for _, m := range list {
		if len(m.Embedding) != len(embedding) {
			continue
		}
		score := Cosine(embedding, m.Embedding)
		if score < threshold {
			continue
		}
		matches = append(matches, entity.MatchedMinute{
			ID:         m.ID,
			Title:      m.Title,
			Analysis:   m.Analysis,
			Similarity: &score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return *matches[i].Similarity > *matches[j].Similarity
	})
	if count > 0 && len(matches) > count {
		matches = matches[:count]
	}
	return entity.RecordsResult(matches), nil
}

// Cosine 余弦相似度；任一向量为零向量时返回 0
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
