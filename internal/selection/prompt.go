// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package selection

import (
	"bytes"
	"encoding/json"
	"text/template"
)

// selectionPromptTmpl asks the model to pick papers for a non-specialist
// reader and to answer with paper IDs only.
var selectionPromptTmpl = template.Must(template.New("selection").Parse(`{{.Papers}}

From the papers listed above, choose exactly {{.Keep}} that are suitable for a non-specialist reader.
Respond only with a JSON array in the form [{"paper_id": ""}] containing the paper_id of each chosen paper, and nothing else.
`))

// candidate is the view of a paper sent to the model.
type candidate struct {
	ID       string `json:"paper_id"`
	Title    string `json:"paper_title"`
	Abstract string `json:"paper_abstract"`
}

func renderPrompt(candidates []candidate, keep int) (string, error) {
	papers, err := json.Marshal(candidates)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := selectionPromptTmpl.Execute(&buf, struct {
		Papers string
		Keep   int
	}{string(papers), keep}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
