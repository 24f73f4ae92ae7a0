package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alytics/alytics/internal/port/textgen"
)

const analystPrompt = `You are a senior data analyst.
Given the following data and business goals/KPIs, provide an executive analysis.

If you receive any data that is empty or not in the correct format, write in your report that no data was found and skip the report.

- Relate observations to the KPIs if possible.
- Mention any clear risks, opportunities, or patterns.
- Be concise, professional, and actionable.

DATA: %s

GOALS & KPIs: %s
`

const criticalThinkerPrompt = `Translate the following analysis to Spanish, respect the markdown format do not change anything else.

If you receive a report that no data was found, format it nicely.

REPORT: %s
`

const copywriterPrompt = `You are a senior business data analyst and expert report writer.
Your task is to generate a professional, executive-style final report in Markdown format.

If you receive in the analysis no data or data that is empty or not in the correct format, write in your report that no data was found and skip the report by just formatting a nice response, passing along the message.

You are provided with:
- An Analysis of the data
- A list of charts (each with a title, description, and image URL).
- The company's business goals and KPIs.

**Instructions:**
1. Format the Analysis into a report using proper Markdown syntax.
2. For each chart:
   - Add the title as an H2 header (##).
   - Write a short, clear description below it.
   - Insert the chart image using: ![Title](url)
   - Use separators (---) between major sections for clarity.
3. Relate observations back to the provided Goals & KPIs whenever possible.
4. Identify any obvious risks, opportunities, or notable patterns.
5. Keep the tone concise, professional, and actionable.
6. Ensure the document is clean and ready to paste into the document store.

Here is the data you must use:

DATA: %s
ANALYSIS: %s
CHARTS: %s

Here are the business goals and KPIs to keep in mind:
GOALS & KPIs: %s
`

// promptFor renders the template for a role over the structured input.
func promptFor(role textgen.Role, in textgen.Input) (string, error) {
	switch role {
	case textgen.RoleAnalyst:
		data, err := json.Marshal(in.Data)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(analystPrompt, data, in.Goals), nil

	case textgen.RoleCriticalThinker:
		return fmt.Sprintf(criticalThinkerPrompt, in.Report), nil

	case textgen.RoleCopywriter:
		data, err := json.Marshal(in.Data)
		if err != nil {
			return "", err
		}
		var charts strings.Builder
		for _, c := range in.Charts {
			fmt.Fprintf(&charts, "- title: %s, description: %s, url: %s\n", c.Title, c.Description, c.URL)
		}
		return fmt.Sprintf(copywriterPrompt, data, in.Analysis, charts.String(), in.Goals), nil

	default:
		return "", fmt.Errorf("unknown prompt role %q", role)
	}
}
