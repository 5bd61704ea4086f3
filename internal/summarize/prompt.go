// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package summarize

import (
	"bytes"
	"text/template"
)

// maxSummaryChars is the synthesis length requested from the model.
const maxSummaryChars = 400

var summaryPromptTmpl = template.Must(template.New("summary").Parse(`Summarize {{.Document}} in {{.Language}} in no more than {{.MaxChars}} characters, and list 2 innovation points.
Respond only with JSON in the format {"summary": "<the summary>", "keypoints_1": "<first innovation point>", "keypoints_2": "<second innovation point>"}.
`))

func renderPrompt(document, language string) (string, error) {
	var buf bytes.Buffer
	err := summaryPromptTmpl.Execute(&buf, struct {
		Document string
		Language string
		MaxChars int
	}{document, language, maxSummaryChars})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
