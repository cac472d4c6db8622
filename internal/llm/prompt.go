package llm

import (
	"encoding/json"
	"fmt"
)

const analysisInstruction = `### INSTRUCTION:
Analyze the patient's health status based on all available metrics.
Structure your analysis as follows:

1. OVERALL HEALTH STATUS:
- Analyze vital signs compared to normal ranges
- Highlight any concerning metrics
- Consider age and gender factors

2. SYMPTOMS ANALYSIS:
- Evaluate reported symptoms
- Identify potential correlations
- Assess severity

3. PRESCRIPTION:
- Recommend generic medications based on symptoms
- Specify dosage and duration
- List potential side effects

4. LIFESTYLE RECOMMENDATIONS:
- Suggest dietary modifications
- Recommend exercise routines if applicable
- Propose lifestyle changes

5. PRECAUTIONS & FOLLOW-UP:
- List necessary precautions
- Recommend follow-up timeline
- Suggest additional tests if needed

Format the analysis using clear markdown headings and bullet points.

### ANALYSIS:
`

// Sections are the headings the analysis prompt asks for, in order.
var Sections = []string{
	"OVERALL HEALTH STATUS",
	"SYMPTOMS ANALYSIS",
	"PRESCRIPTION",
	"LIFESTYLE RECOMMENDATIONS",
	"PRECAUTIONS & FOLLOW-UP",
}

// BuildPrompt embeds data as indented JSON under a PATIENT DATA heading,
// followed by the analysis instruction.
func BuildPrompt(data any) (string, error) {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode patient data: %w", err)
	}
	return "### PATIENT DATA:\n" + string(encoded) + "\n\n" + analysisInstruction, nil
}
