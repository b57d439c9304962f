package model

import "encoding/json"

// ExamQuestion is one entry of the exam question bank. The fixer only ever
// rewrites QuestionText, Answer and Options; everything else is passed through.
type ExamQuestion struct {
	UUIDBase
	Subject      string          `gorm:"size:100;index" json:"subject"`
	Chapter      *string         `gorm:"size:255;index" json:"chapter"` // 章节，可能为 NULL
	QuestionText string          `gorm:"type:text;not null" json:"questionText"`
	Options      json.RawMessage `gorm:"type:json" json:"options"` // JSON: []string
	Answer       string          `gorm:"type:text" json:"answer"`
	ExamName     string          `gorm:"size:255" json:"examName"`
	ExamYear     int             `gorm:"default:0" json:"examYear"`
	HasImage     bool            `gorm:"default:false" json:"hasImage"`
}

func (ExamQuestion) TableName() string {
	return "exam_questions"
}

// OptionList 把 JSON 列解码成字符串切片，空列返回 nil
func (q *ExamQuestion) OptionList() ([]string, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []string
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (q *ExamQuestion) SetOptionList(opts []string) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	q.Options = data
	return nil
}
