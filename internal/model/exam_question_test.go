package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamQuestionOptionList(t *testing.T) {
	t.Run("空列返回 nil", func(t *testing.T) {
		q := &ExamQuestion{}
		opts, err := q.OptionList()
		require.NoError(t, err)
		assert.Nil(t, opts)
	})

	t.Run("合法 JSON 解码为切片", func(t *testing.T) {
		q := &ExamQuestion{Options: json.RawMessage(`["$1$", "$2$"]`)}
		opts, err := q.OptionList()
		require.NoError(t, err)
		assert.Equal(t, []string{"$1$", "$2$"}, opts)
	})

	t.Run("非法 JSON 报错", func(t *testing.T) {
		q := &ExamQuestion{Options: json.RawMessage(`not json`)}
		_, err := q.OptionList()
		require.Error(t, err)
	})

	t.Run("SetOptionList 后可原样读回", func(t *testing.T) {
		q := &ExamQuestion{}
		require.NoError(t, q.SetOptionList([]string{`\(1\)`, `\(2\)`}))
		opts, err := q.OptionList()
		require.NoError(t, err)
		assert.Equal(t, []string{`\(1\)`, `\(2\)`}, opts)
	})
}

func TestGenerateUUID(t *testing.T) {
	a := GenerateUUID()
	b := GenerateUUID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
