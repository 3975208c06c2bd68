package converters

import (
	"bufio"
	"errors"
	"strings"
	"time"

	"github.com/UNI-Final-Project/api-multimodal-ai/internal/models"
	"github.com/UNI-Final-Project/api-multimodal-ai/internal/orchestration"
)

var ErrMissingTaskID = errors.New("missing task id")

// ResultConverter turns a finished pipeline run into the stored result document.
type ResultConverter interface {
	Convert(taskID, answer string, summary orchestration.Summary) (*models.QAResult, error)
}

// JSONConverter builds QAResult documents meant to be serialized as JSON.
type JSONConverter struct {
	now func() time.Time
}

func NewJSONConverter() *JSONConverter {
	return &JSONConverter{now: time.Now}
}

func (c *JSONConverter) Convert(taskID, answer string, summary orchestration.Summary) (*models.QAResult, error) {
	if taskID == "" {
		return nil, ErrMissingTaskID
	}

	metadata := summary.AsMap()
	metadata["sections"] = Sections(answer)
	metadata["word_count"] = len(strings.Fields(answer))

	return &models.QAResult{
		TaskID:      taskID,
		OK:          summary.Outcome.OK(),
		Answer:      answer,
		Metadata:    metadata,
		CompletedAt: c.now(),
	}, nil
}

// Sections lists the markdown headings of answer in order of appearance.
func Sections(answer string) []string {
	sections := make([]string, 0)
	scanner := bufio.NewScanner(strings.NewReader(answer))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "#") {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if title != "" {
			sections = append(sections, title)
		}
	}
	return sections
}
