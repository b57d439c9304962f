package service

import (
	"context"
	"encoding/json"
	"fmt"
	"latex_format_fixer/internal/config"
	"latex_format_fixer/internal/model"
	"latex_format_fixer/internal/repository"
	"latex_format_fixer/pkg/logger"
	"latex_format_fixer/pkg/monitoring"
	"latex_format_fixer/pkg/tracing"
	"time"

	"go.uber.org/zap"
)

// AICaller 是修复流程对模型客户端的全部要求，测试里用假实现替换
type AICaller interface {
	ChatMessages(ctx context.Context, messages []AIChatMessage) (string, error)
}

type RecordOutcome string

const (
	RecordOutcomeUpdated     RecordOutcome = "updated"
	RecordOutcomeParseFailed RecordOutcome = "parse_failed"
	RecordOutcomeCallFailed  RecordOutcome = "call_failed"
	RecordOutcomeWriteFailed RecordOutcome = "write_failed"
)

type FailedRecord struct {
	ID      string `json:"id"`
	Chapter string `json:"chapter"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

type ChapterResult struct {
	Chapter string `json:"chapter"`
	Total   int    `json:"total"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Error   string `json:"error,omitempty"`
}

type RunReport struct {
	RunID         string          `json:"run_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	DryRun        bool            `json:"dry_run"`
	Chapters      []ChapterResult `json:"chapters"`
	FailedRecords []FailedRecord  `json:"failed_records"`
}

// LatexFixService 逐章节扫描题库，调用模型修复数学公式定界符并回写。
// 章节之间、题目之间都严格串行，靠固定间隔控制模型调用频率。
type LatexFixService struct {
	repo    *repository.ExamQuestionRepository
	ai      AICaller
	cache   *ResponseCacheService
	pacing  time.Duration
	dryRun  bool
	chapter string
	limit   int
}

func NewLatexFixService(repo *repository.ExamQuestionRepository, ai AICaller, cache *ResponseCacheService, cfg *config.Config) *LatexFixService {
	return &LatexFixService{
		repo:    repo,
		ai:      ai,
		cache:   cache,
		pacing:  cfg.Fixer.PacingSeconds,
		dryRun:  cfg.DryRun,
		chapter: cfg.Chapter,
		limit:   cfg.Limit,
	}
}

// Run 枚举全部章节并逐个修复。只有章节枚举失败才返回 error，
// 单条记录的失败都记进报告，不中断整库运行。
func (s *LatexFixService) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     model.GenerateUUID(),
		StartedAt: time.Now(),
		DryRun:    s.dryRun,
	}

	chapters, err := s.repo.DistinctChapters()
	if err != nil {
		return nil, fmt.Errorf("enumerate chapters: %w", err)
	}

	if s.chapter != "" {
		found := false
		for _, ch := range chapters {
			if ch == s.chapter {
				found = true
				break
			}
		}
		if !found {
			logger.Log.Warn("指定的章节在题库中不存在", zap.String("chapter", s.chapter))
			chapters = nil
		} else {
			chapters = []string{s.chapter}
		}
	}

	var total int64
	for _, ch := range chapters {
		if n, err := s.repo.CountByChapter(ch); err == nil {
			total += n
		}
	}

	logger.Log.Info("开始修复题库公式格式",
		zap.String("run_id", report.RunID),
		zap.Int("chapters", len(chapters)),
		zap.Int64("questions", total),
		zap.Bool("dry_run", s.dryRun))

	for _, ch := range chapters {
		report.Chapters = append(report.Chapters, s.fixChapter(ctx, ch, report))
	}

	report.FinishedAt = time.Now()

	var updated, failed int
	for _, ch := range report.Chapters {
		updated += ch.Updated
		failed += ch.Failed
	}
	logger.Log.Info("题库公式修复完成",
		zap.String("run_id", report.RunID),
		zap.Int("chapters", len(report.Chapters)),
		zap.Int("updated", updated),
		zap.Int("failed", failed))

	return report, nil
}

// fixChapter 按查询返回的顺序逐题处理一个章节，单题失败只计数不停批
func (s *LatexFixService) fixChapter(ctx context.Context, chapter string, report *RunReport) ChapterResult {
	chapterCtx, span := tracing.Tracer.Start(ctx, fmt.Sprintf("fix_chapter %s", chapter))
	defer span.End()

	result := ChapterResult{Chapter: chapter}

	questions, err := s.repo.FindByChapter(chapter)
	if err != nil {
		logger.Log.Error("查询章节题目失败", zap.String("chapter", chapter), zap.Error(err))
		result.Error = err.Error()
		return result
	}

	if s.limit > 0 && len(questions) > s.limit {
		questions = questions[:s.limit]
	}
	result.Total = len(questions)
	if len(questions) == 0 {
		return result
	}

	logger.Log.Info("开始修复章节", zap.String("chapter", chapter), zap.Int("count", len(questions)))

	for i := range questions {
		if i > 0 {
			// 避免模型 API 限流，记录之间固定间隔
			time.Sleep(s.pacing)
		}

		q := &questions[i]
		outcome, detail := s.processQuestion(chapterCtx, q)
		monitoring.QuestionCounter.WithLabelValues(chapter, string(outcome)).Inc()

		if outcome == RecordOutcomeUpdated {
			result.Updated++
			continue
		}
		result.Failed++
		report.FailedRecords = append(report.FailedRecords, FailedRecord{
			ID:      q.ID,
			Chapter: chapter,
			Reason:  string(outcome),
			Detail:  detail,
		})
	}

	logger.Log.Info("章节修复完成",
		zap.String("chapter", chapter),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Int("total", result.Total))

	return result
}

// processQuestion 修复单条记录：组提示词、调模型、解析响应、按主键回写三个字段。
// 任何失败都转成结果值返回，绝不向上抛。
func (s *LatexFixService) processQuestion(ctx context.Context, q *model.ExamQuestion) (RecordOutcome, string) {
	recordCtx, span := tracing.Tracer.Start(ctx, fmt.Sprintf("fix_question %s", q.ID))
	defer span.End()

	storedOptions, optErr := q.OptionList()
	if optErr != nil {
		logger.Log.Warn("题目 options 列不是合法的字符串数组，修复时保留原值",
			zap.String("id", q.ID), zap.Error(optErr))
	}

	messages := BuildFixMessages(q.QuestionText, q.Answer, storedOptions)

	raw, hit := s.cache.Get(recordCtx, messages)
	if !hit {
		start := time.Now()
		resp, err := s.ai.ChatMessages(recordCtx, messages)
		monitoring.ModelCallDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			logger.Log.Warn("模型调用失败", zap.String("id", q.ID), zap.Error(err))
			return RecordOutcomeCallFailed, err.Error()
		}
		raw = resp
		s.cache.Set(recordCtx, messages, raw)
	}

	fallback := QuestionContent{
		QuestionText: q.QuestionText,
		Answer:       q.Answer,
		Options:      storedOptions,
	}
	parsed := ParseModelResponse(raw, fallback)
	monitoring.ParseOutcomeCounter.WithLabelValues(string(parsed.Outcome)).Inc()

	logger.Log.Debug("模型响应解析完成",
		zap.String("id", q.ID),
		zap.String("outcome", string(parsed.Outcome)),
		zap.Bool("cache_hit", hit),
		zap.String("raw", truncate(raw, 2000)),
		zap.String("cleaned", truncate(parsed.Cleaned, 2000)))

	if parsed.Outcome == ParseOutcomeFailed {
		logger.Log.Warn("模型响应为空，跳过该题", zap.String("id", q.ID))
		return RecordOutcomeParseFailed, "empty model response"
	}

	// 选项数量是硬性约束：数量对不上就保留库里的选项，只更新题干和答案
	optionsJSON := q.Options
	switch {
	case optErr != nil:
	case len(parsed.Content.Options) != len(storedOptions):
		logger.Log.Warn("修复结果选项数量不一致，保留原有选项",
			zap.String("id", q.ID),
			zap.Int("stored", len(storedOptions)),
			zap.Int("normalized", len(parsed.Content.Options)))
	case len(storedOptions) > 0:
		optionsJSON, _ = json.Marshal(parsed.Content.Options)
	}

	if s.dryRun {
		logger.Log.Info("dry-run 模式，跳过写库",
			zap.String("id", q.ID), zap.String("outcome", string(parsed.Outcome)))
		return RecordOutcomeUpdated, ""
	}

	if err := s.repo.UpdateFixedFields(q.ID, parsed.Content.QuestionText, parsed.Content.Answer, optionsJSON); err != nil {
		logger.Log.Warn("回写修复结果失败", zap.String("id", q.ID), zap.Error(err))
		return RecordOutcomeWriteFailed, err.Error()
	}

	logger.Log.Info("题目修复完成", zap.String("id", q.ID), zap.String("outcome", string(parsed.Outcome)))
	return RecordOutcomeUpdated, ""
}

// truncate 截取文本前 n 个字符，日志里不整段输出超长响应
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
