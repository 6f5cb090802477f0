package retrieval

import (
	"sort"

	"github.com/siherrmann/pagegraph/model"
)

// Weights maps a modality to its fusion weight.
type Weights map[model.Modality]float64

// WeightsFromConfig returns the fusion weights of a retrieval config.
func WeightsFromConfig(config model.RetrievalConfig) Weights {
	return Weights{
		model.ModalityKeyword:  config.KeywordWeight,
		model.ModalityVector:   config.VectorWeight,
		model.ModalitySemantic: config.SemanticWeight,
	}
}

func (w Weights) of(m model.Modality) float64 {
	if weight, ok := w[m]; ok && weight > 0 {
		return weight
	}
	return 1
}

// Dedupe removes hits with an already seen chunk id and keeps first seen order.
func Dedupe(hits []*model.SearchHit) []*model.SearchHit {
	seen := make(map[string]bool, len(hits))
	unique := make([]*model.SearchHit, 0, len(hits))
	for _, hit := range hits {
		if hit == nil || seen[hit.ChunkID] {
			continue
		}
		seen[hit.ChunkID] = true
		unique = append(unique, hit)
	}
	return unique
}

// Fuse merges phase results into one deduplicated list in first seen order.
// A chunk found by several modalities gets the weighted average
// sum(w*s)/sum(w) of its scores, a chunk found once keeps its score.
// Input hits are not modified. Duplicates within one modality keep the
// higher score.
func Fuse(weights Weights, phases ...[]*model.SearchHit) []*model.SearchHit {
	type acc struct {
		hit    *model.SearchHit
		scores map[model.Modality]float64
	}

	var order []string
	byChunk := map[string]*acc{}
	for _, phase := range phases {
		for _, hit := range phase {
			if hit == nil {
				continue
			}
			a, ok := byChunk[hit.ChunkID]
			if !ok {
				copied := *hit
				a = &acc{hit: &copied, scores: map[model.Modality]float64{}}
				byChunk[hit.ChunkID] = a
				order = append(order, hit.ChunkID)
			}
			if prev, ok := a.scores[hit.Modality]; !ok || hit.Score > prev {
				a.scores[hit.Modality] = hit.Score
			}
			if a.hit.Caption == "" && hit.Caption != "" {
				a.hit.Caption = hit.Caption
			}
		}
	}

	fused := make([]*model.SearchHit, 0, len(order))
	for _, id := range order {
		a := byChunk[id]
		if len(a.scores) > 1 {
			var sum, weightSum float64
			for modality, score := range a.scores {
				w := weights.of(modality)
				sum += w * score
				weightSum += w
			}
			a.hit.Score = sum / weightSum
		} else {
			for _, score := range a.scores {
				a.hit.Score = score
			}
		}
		fused = append(fused, a.hit)
	}
	return fused
}

// SortByScore orders hits by descending score, ties keep their order.
func SortByScore(hits []*model.SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func topScore(hits []*model.SearchHit) float64 {
	top := 0.0
	for _, hit := range hits {
		top = max(top, hit.Score)
	}
	return top
}

func limit(hits []*model.SearchHit, n int) []*model.SearchHit {
	if n > 0 && len(hits) > n {
		return hits[:n]
	}
	return hits
}
