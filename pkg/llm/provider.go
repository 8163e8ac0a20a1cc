// Package llm is the gateway to the language-model backend. Both provider
// variants always produce an answer: live failures are absorbed and
// replaced by the heuristic analyzer's output.
package llm

import (
	"context"

	"github.com/AndresDavidVV/ClinicaIA/pkg/common/config"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/database"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/logger"
	"github.com/AndresDavidVV/ClinicaIA/pkg/common/models"
	"github.com/AndresDavidVV/ClinicaIA/pkg/heuristic"
)

type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

type Opinion struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// Translation holds either a generated query (Source live) or the
// simulation-mode Message (Source fallback), never both.
type Translation struct {
	Query   string `json:"query,omitempty"`
	Message string `json:"message,omitempty"`
	Source  Source `json:"source"`
	Refused bool   `json:"refused,omitempty"`
}

type ResponseProvider interface {
	SynthesizeOpinion(ctx context.Context, req models.AnalysisRequest) Opinion
	TranslateToQuery(ctx context.Context, question, schema string) Translation
}

// NewProvider picks the variant once at startup: a usable LLM_API_KEY
// selects the live backend, anything else the mock.
func NewProvider(cfg *config.Config, analyzer *heuristic.Analyzer) ResponseProvider {
	if !cfg.HasLLMCredential() {
		logger.Log.Info("LLM_API_KEY not set, running in fallback mode")
		return NewMockProvider(analyzer)
	}

	client := NewChatClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	live := NewLiveProvider(client, analyzer, cfg.LLMOpinionModel, cfg.LLMQueryModel)
	if cfg.OpinionCacheEnabled {
		live = live.WithCache(NewRedisOpinionCache(database.GetRedis(cfg), cfg.OpinionCacheTTL))
	}

	logger.Log.WithFields(map[string]interface{}{
		"base_url":      cfg.LLMBaseURL,
		"opinion_model": cfg.LLMOpinionModel,
		"query_model":   cfg.LLMQueryModel,
		"cache":         cfg.OpinionCacheEnabled,
	}).Info("LLM backend configured")
	return live
}
