package repository

import (
	"encoding/json"
	"latex_format_fixer/internal/model"

	"gorm.io/gorm"
)

type ExamQuestionRepository struct {
	DB *gorm.DB
}

func NewExamQuestionRepository(db *gorm.DB) *ExamQuestionRepository {
	return &ExamQuestionRepository{DB: db}
}

// DistinctChapters 列出题库中出现过的全部章节，忽略 NULL 和空串
func (r *ExamQuestionRepository) DistinctChapters() ([]string, error) {
	var chapters []string
	err := r.DB.Model(&model.ExamQuestion{}).
		Where("chapter IS NOT NULL AND chapter <> ''").
		Distinct("chapter").
		Order("chapter").
		Pluck("chapter", &chapters).Error
	return chapters, err
}

// FindByChapter 取出指定章节的全部题目
func (r *ExamQuestionRepository) FindByChapter(chapter string) ([]model.ExamQuestion, error) {
	var questions []model.ExamQuestion
	err := r.DB.Where("chapter = ?", chapter).
		Order("created_at").
		Find(&questions).Error
	return questions, err
}

// CountByChapter 统计指定章节的题目数
func (r *ExamQuestionRepository) CountByChapter(chapter string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.ExamQuestion{}).
		Where("chapter = ?", chapter).
		Count(&count).Error
	return count, err
}

func (r *ExamQuestionRepository) FindByID(id string) (*model.ExamQuestion, error) {
	var question model.ExamQuestion
	err := r.DB.Where("id = ?", id).First(&question).Error
	if err != nil {
		return nil, err
	}
	return &question, nil
}

func (r *ExamQuestionRepository) Create(question *model.ExamQuestion) error {
	return r.DB.Create(question).Error
}

// UpdateFixedFields 按主键回写修复后的三个字段，其余列一律不动
func (r *ExamQuestionRepository) UpdateFixedFields(id string, questionText, answer string, options json.RawMessage) error {
	return r.DB.Model(&model.ExamQuestion{}).Where("id = ?", id).Updates(map[string]interface{}{
		"question_text": questionText,
		"answer":        answer,
		"options":       options,
	}).Error
}
